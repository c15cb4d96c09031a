package device

import (
	"testing"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"github.com/chazu/tocloak/pkg/scene"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func populate(t *testing.T, d Device) (*scene.Collection, *Result) {
	t.Helper()
	c := scene.NewCollection(d.Name())
	res, err := Populate(c, d, NewContext(nil, 1))
	require.NoError(t, err)
	return c, res
}

func nearVec(t *testing.T, want, got r3.Vec, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	if !geom.Near(want, got, tol) {
		t.Errorf("expected %v, got %v %v", want, got, msgAndArgs)
	}
}

func lensOf(t *testing.T, res *Result, face string) *optics.IdealLens {
	t.Helper()
	s, ok := res.Surfaces[face]
	require.True(t, ok, "no face %q", face)
	l, ok := s.(*optics.IdealLens)
	require.True(t, ok, "face %q is %T", face, s)
	return l
}

// checkOutwardNormals verifies that every face normal points from its
// inner cell towards the face.
func checkOutwardNormals(t *testing.T, res *Result) {
	t.Helper()
	topo := res.Topology
	for _, f := range topo.Faces {
		pl, pts, err := topo.FacePlane(f)
		require.NoError(t, err)
		ref := f.Outward
		if ref == (r3.Vec{}) {
			cell, ok := topo.Cell(f.Inner)
			require.True(t, ok)
			cp, err := topo.Positions(cell.Vertices)
			require.NoError(t, err)
			ref = r3.Sub(geom.Centroid(pts...), geom.Centroid(cp...))
		}
		if r3.Dot(pl.Normal, ref) < 0 {
			t.Errorf("face %q normal %v points inwards", f.Name, pl.Normal)
		}
	}
}
