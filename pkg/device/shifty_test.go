package device

import (
	"strings"
	"testing"

	"github.com/chazu/tocloak/pkg/optics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCubicShiftyInnerFaceCentreAppearsShifted(t *testing.T) {
	c := DefaultCubicShiftyCloak()
	c.OuterSide = 1
	c.InnerSide = 0.5
	c.Shift = r3.Vec{X: 1}
	_, res := populate(t, c)
	require.Empty(t, res.Report.Failed())

	centre := r3.Vec{X: 0.25}
	got, err := res.Trace(centre, r3.Vec{X: 1}, "inner +u", "outer +u")
	require.NoError(t, err)
	nearVec(t, r3.Vec{X: 1.25}, got, 1e-9)
}

func TestCubicShiftyInnerCellMap(t *testing.T) {
	c := DefaultCubicShiftyCloak()
	c.Centre = r3.Vec{X: 2, Y: -1, Z: 0.5}
	c.U = r3.Vec{X: 1, Y: 1}
	c.V = r3.Vec{X: -1, Y: 1, Z: 0.3}
	c.Shift = r3.Vec{X: 0.1, Y: -0.05, Z: 0.15}
	_, res := populate(t, c)

	// Every point of the inner cube appears shifted, whichever side it is
	// seen from.
	q := r3.Add(c.Centre, r3.Vec{X: 0.05, Y: -0.07, Z: 0.02})
	want := r3.Add(q, c.Shift)
	got, err := res.EMPosition("inner", q)
	require.NoError(t, err)
	nearVec(t, want, got, 1e-9)

	topo := res.Topology
	for _, s := range cubeSides {
		inner := "inner " + s.String()
		var f Face
		for _, x := range topo.Faces {
			if x.Name == inner {
				f = x
			}
		}
		pl, _, err := topo.FacePlane(f)
		require.NoError(t, err)
		got, err := res.Trace(q, pl.Normal, inner, "outer "+s.String())
		require.NoError(t, err)
		nearVec(t, want, got, 1e-9, "side", s)
	}
}

func TestCubicShiftySurfaces(t *testing.T) {
	c := DefaultCubicShiftyCloak()
	c.Apertures = true
	col, res := populate(t, c)

	counts := res.Report.Counts()
	assert.Equal(t, 6+6+12, counts[optics.KindGCLA])
	for name, s := range res.Surfaces {
		g, ok := s.(*optics.GCLA)
		require.True(t, ok, name)
		assert.True(t, g.Apertures, name)
		if strings.HasPrefix(name, "diagonal") {
			assert.Greater(t, r3.Norm(g.Shift), 0.0, name)
		}
	}
	assert.Len(t, col.MustSub(FacesCollection).Polygons(), 24)
	checkOutwardNormals(t, res)
}

func TestCubicShiftyWithoutShiftIsTransparent(t *testing.T) {
	c := DefaultCubicShiftyCloak()
	c.Shift = r3.Vec{}
	_, res := populate(t, c)
	assert.Equal(t, 24, res.Report.Counts()[optics.KindTransparent])
}
