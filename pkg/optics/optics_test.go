package optics

import (
	"math"
	"testing"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var zPlane = geom.NewPlane(r3.Vec{}, r3.Vec{Z: 1})

func near(t *testing.T, want, got r3.Vec, tol float64) {
	t.Helper()
	if !geom.Near(want, got, tol) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestIdealLensImaging(t *testing.T) {
	lens := NewIdealLens(r3.Vec{}, r3.Vec{Z: 1}, 1)

	// Object at -2f images to +2f.
	img, err := lens.ImagePosition(r3.Vec{Z: -2}, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, r3.Vec{Z: 2}, img, 1e-12)

	// Off-axis point scales about the principal point.
	img, err = lens.ImagePosition(r3.Vec{X: 1, Z: -2}, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, r3.Vec{X: -1, Z: 2}, img, 1e-12)

	// Collineation agrees with the lens equation.
	viaMatrix, err := lens.Collineation().Apply(r3.Vec{X: 1, Z: -2})
	require.NoError(t, err)
	near(t, img, viaMatrix, 1e-12)

	// Object in the focal plane images to infinity.
	_, err = lens.ImagePosition(r3.Vec{Z: -1}, r3.Vec{Z: 1})
	assert.ErrorIs(t, err, ErrImageAtInfinity)
}

func TestIdealLensReverseDirection(t *testing.T) {
	lens := NewIdealLens(r3.Vec{X: 1}, r3.Vec{Z: 1}, 3)
	q := r3.Vec{X: 2, Y: -1, Z: -5}

	img, err := lens.ImagePosition(q, r3.Vec{Z: 1})
	require.NoError(t, err)
	back, err := lens.ImagePosition(img, r3.Vec{Z: -1})
	require.NoError(t, err)
	near(t, q, back, 1e-9)
}

func TestIdealLensFromConjugatePair(t *testing.T) {
	pl := geom.NewPlane(r3.Vec{Z: 1}, r3.Vec{Z: 1})
	object := r3.Vec{X: 0.2, Y: 0.1, Z: -3}
	image := r3.Vec{X: -0.5, Y: 0.3, Z: 4}

	lens, err := IdealLensFromConjugatePair(pl, object, image)
	require.NoError(t, err)
	assert.InDelta(t, 1, lens.Principal.Z, 1e-12)

	got, err := lens.ImagePosition(object, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, image, got, 1e-9)

	_, err = IdealLensFromConjugatePair(pl, r3.Vec{Z: 1}, image)
	assert.ErrorIs(t, err, ErrNotRealizable)

	same, err := IdealLensFromConjugatePair(pl, object, object)
	require.NoError(t, err)
	assert.True(t, math.IsInf(same.F, 1))
}

func TestGlensFromConjugatePair(t *testing.T) {
	nodal := r3.Vec{X: 0.3, Z: 0.5}
	object := r3.Vec{X: 1, Y: 1, Z: -2}
	// Any point on the line through nodal and object is a valid image.
	image := r3.Add(nodal, r3.Scale(-0.7, r3.Sub(object, nodal)))

	g, err := GlensFromConjugatePair(zPlane, nodal, object, image)
	require.NoError(t, err)

	got, err := g.ImagePosition(object, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, image, got, 1e-9)

	n, ok := g.NodalPoint()
	require.True(t, ok)
	near(t, nodal, n, 1e-9)

	// Collinearity is required.
	_, err = GlensFromConjugatePair(zPlane, nodal, object, r3.Add(image, r3.Vec{Y: 0.5}))
	assert.ErrorIs(t, err, ErrNotRealizable)
}

func TestGlensFromConjugatePairs(t *testing.T) {
	// Nodal point (0.2, -0.1, 0.4), negative-space focal length -2.
	want := &Glens{Surf: zPlane, Centre: Homogeneous{0.1, -0.05, 0.2, 0.5}}

	objects := [2]r3.Vec{{X: 1, Z: -3}, {Y: -1, Z: -5}}
	var images [2]r3.Vec
	var err error
	for i, o := range objects {
		images[i], err = want.ImagePosition(o, r3.Vec{Z: 1})
		require.NoError(t, err)
	}

	g, err := GlensFromConjugatePairs(zPlane, objects, images)
	require.NoError(t, err)
	q := r3.Vec{X: -0.4, Y: 0.7, Z: -1.5}
	a, err := want.ImagePosition(q, r3.Vec{Z: 1})
	require.NoError(t, err)
	b, err := g.ImagePosition(q, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, a, b, 1e-7)

	_, gMinus := g.FocalLengths()
	assert.InDelta(t, -2, gMinus, 1e-7)

	// A third pair off the glens cannot be matched.
	images[1] = r3.Add(images[1], r3.Vec{X: 0.3})
	_, err = GlensFromConjugatePairs(zPlane, objects, images)
	assert.ErrorIs(t, err, ErrNotRealizable)
}

func TestGlensFocalLengthsOfLens(t *testing.T) {
	lens := NewIdealLens(r3.Vec{X: 2}, r3.Vec{Z: 1}, 1.5)
	c, err := lens.Collineation().Central(lens.Plane(), 1e-9)
	require.NoError(t, err)
	g := &Glens{Surf: lens.Plane(), Centre: c}
	gPlus, gMinus := g.FocalLengths()
	assert.InDelta(t, 1.5, gPlus, 1e-9)
	assert.InDelta(t, -1.5, gMinus, 1e-9)
}

func TestGCLAFromConjugatePair(t *testing.T) {
	object := r3.Vec{X: 1, Z: -2}
	image := r3.Vec{X: 1.4, Y: 0.2, Z: -2.5}
	g, err := GCLAFromConjugatePair(zPlane, object, image)
	require.NoError(t, err)

	got, err := g.ImagePosition(object, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, image, got, 1e-12)

	// Points in the plane stay put.
	got, err = g.ImagePosition(r3.Vec{X: 5, Y: 5}, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, r3.Vec{X: 5, Y: 5}, got, 1e-12)

	_, err = GCLAFromConjugatePair(zPlane, r3.Vec{X: 1}, image)
	assert.ErrorIs(t, err, ErrNotRealizable)
}

func TestMirror(t *testing.T) {
	pl := geom.NewPlane(r3.Vec{Z: 1}, r3.Vec{Z: 1})
	q := r3.Vec{X: 1, Y: 2, Z: 3}
	want := r3.Vec{X: 1, Y: 2, Z: -1}

	m := &Mirror{Surf: pl}
	got, err := m.ImagePosition(q, r3.Vec{Z: -1})
	require.NoError(t, err)
	near(t, want, got, 1e-12)
	viaMatrix, err := m.Collineation().Apply(q)
	require.NoError(t, err)
	near(t, want, viaMatrix, 1e-12)

	// Light from either side sees the same image.
	got, err = m.ImagePosition(q, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, want, got, 1e-12)
	assert.Equal(t, KindMirror, m.Kind())
}

func TestRayRotation(t *testing.T) {
	pl := geom.NewPlane(r3.Vec{Z: 1}, r3.Vec{Z: 1})
	r := &RayRotation{Surf: pl}
	q := r3.Vec{X: 1, Y: 2, Z: 3}
	for _, dir := range []r3.Vec{{Z: 1}, {Z: -1}} {
		got, err := r.ImagePosition(q, dir)
		require.NoError(t, err)
		near(t, r3.Vec{X: 1, Y: 2, Z: -1}, got, 1e-12)
	}
	viaMatrix, err := r.Collineation().Apply(q)
	require.NoError(t, err)
	near(t, r3.Vec{X: 1, Y: 2, Z: -1}, viaMatrix, 1e-12)
	assert.Equal(t, "ray-rotation", r.Kind().String())
}

func TestTeleporting(t *testing.T) {
	from, err := geom.NewFrame(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1})
	require.NoError(t, err)
	to, err := geom.NewFrame(r3.Vec{X: 10}, r3.Vec{Y: 1}, r3.Vec{X: -1})
	require.NoError(t, err)
	tp := &Teleporting{From: from, To: to}

	q := r3.Vec{X: 1, Y: 2, Z: 3}
	got, err := tp.ImagePosition(q, r3.Vec{Z: 1})
	require.NoError(t, err)
	near(t, r3.Vec{X: 8, Y: 1, Z: 3}, got, 1e-12)

	viaMatrix, err := tp.Collineation().Apply(q)
	require.NoError(t, err)
	near(t, got, viaMatrix, 1e-12)
}

func TestRealize(t *testing.T) {
	pl := geom.NewPlane(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 1, Y: 2, Z: 2})

	t.Run("identity", func(t *testing.T) {
		s, err := Realize(Identity(), pl, IdealThinLens, 1e-9)
		require.NoError(t, err)
		assert.Equal(t, KindTransparent, s.Kind())
	})

	t.Run("lens", func(t *testing.T) {
		lens := NewIdealLens(r3.Vec{X: 1, Y: 1, Z: 1}, pl.Normal, -2.5)
		lens.Principal = r3.Add(lens.Principal, geom.Unit(r3.Vec{X: 2, Y: -1}))
		s, err := Realize(lens.Collineation(), pl, IdealThinLens, 1e-9)
		require.NoError(t, err)
		got, ok := s.(*IdealLens)
		require.True(t, ok, "got %T", s)
		assert.InDelta(t, -2.5, got.F, 1e-9)
		near(t, lens.Principal, got.Principal, 1e-9)

		s, err = Realize(lens.Collineation(), pl, PhaseHologram, 1e-9)
		require.NoError(t, err)
		assert.Equal(t, KindPhaseHologram, s.Kind())

		s, err = Realize(lens.Collineation(), pl, GlassPane, 1e-9)
		require.NoError(t, err)
		assert.Equal(t, KindTransparent, s.Kind())
	})

	t.Run("ray rotation", func(t *testing.T) {
		for _, side := range []geom.Plane{pl, pl.Flipped()} {
			s, err := Realize((&Mirror{Surf: pl}).Collineation(), side, IdealThinLens, 1e-9)
			require.NoError(t, err)
			r, ok := s.(*RayRotation)
			require.True(t, ok, "got %T", s)
			q := r3.Vec{X: 2, Y: -1, Z: 0.5}
			got, err := r.ImagePosition(q, side.Normal)
			require.NoError(t, err)
			near(t, reflect(pl, q), got, 1e-12)
		}
	})

	t.Run("gcla", func(t *testing.T) {
		g := &GCLA{Surf: pl, Shift: r3.Vec{X: 0.3, Y: -0.2}}
		s, err := Realize(g.Collineation(), pl, IdealThinLens, 1e-9)
		require.NoError(t, err)
		got, ok := s.(*GCLA)
		require.True(t, ok, "got %T", s)
		near(t, g.Shift, got.Shift, 1e-9)
	})

	t.Run("glens", func(t *testing.T) {
		g := &Glens{Surf: pl, Centre: Homogeneous{-3 / 1.7, 0, 0, -1 / 1.7}}
		s, err := Realize(g.Collineation(), pl, IdealThinLens, 1e-9)
		require.NoError(t, err)
		assert.Equal(t, KindGlens, s.Kind())
	})

	t.Run("not fixing plane", func(t *testing.T) {
		shift := NewCollineation([16]float64{
			1, 0, 0, 1,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		})
		_, err := Realize(shift, pl, IdealThinLens, 1e-9)
		assert.ErrorIs(t, err, ErrNotRealizable)
	})
}

func TestCollineationInverseAndThen(t *testing.T) {
	a := NewIdealLens(r3.Vec{}, r3.Vec{Z: 1}, 2).Collineation()
	b := NewIdealLens(r3.Vec{Z: 1}, r3.Vec{Z: 1}, -5).Collineation()

	inv, err := a.Inverse()
	require.NoError(t, err)
	assert.True(t, a.Then(inv).IsIdentity(1e-12))

	q := r3.Vec{X: 0.1, Y: 0.2, Z: -4}
	ab, err := a.Then(b).Apply(q)
	require.NoError(t, err)
	mid, err := a.Apply(q)
	require.NoError(t, err)
	want, err := b.Apply(mid)
	require.NoError(t, err)
	near(t, want, ab, 1e-9)
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "glens", KindGlens.String())
	r, ok := ParseLensRepresentation("phase-hologram")
	require.True(t, ok)
	assert.Equal(t, PhaseHologram, r)
	_, ok = ParseLensRepresentation("nope")
	assert.False(t, ok)
}
