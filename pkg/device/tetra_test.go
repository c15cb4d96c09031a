package device

import (
	"strings"
	"testing"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestTetraFaces(t *testing.T) {
	c := DefaultTetraCloak()
	c.Centre = r3.Vec{X: 0.3, Y: -0.2, Z: 1}
	col, res := populate(t, c)
	require.Empty(t, res.Report.Failed())

	var outer, inner, diagonal int
	for _, p := range col.MustSub(FacesCollection).Polygons() {
		kind := res.Surfaces[p.Name].Kind()
		switch {
		case strings.HasPrefix(p.Name, "outer"):
			outer++
			assert.Equal(t, optics.KindGlens, kind, p.Name)
			ref := r3.Sub(geom.Centroid(p.Vertices...), c.Centre)
			assert.Greater(t, r3.Dot(p.Normal, ref), 0.0, p.Name)
		case strings.HasPrefix(p.Name, "inner"):
			inner++
			assert.Equal(t, optics.KindGlens, kind, p.Name)
			ref := r3.Sub(geom.Centroid(p.Vertices...), c.Centre)
			assert.Greater(t, r3.Dot(p.Normal, ref), 0.0, p.Name)
		case strings.HasPrefix(p.Name, "diagonal"):
			diagonal++
			require.Equal(t, optics.KindIdealLens, kind, p.Name)
			l := res.Surfaces[p.Name].(*optics.IdealLens)
			nearVec(t, c.Centre, l.Principal, 1e-9, p.Name)
		}
	}
	assert.Equal(t, 4, outer)
	assert.Equal(t, 4, inner)
	assert.Equal(t, 6, diagonal)
	checkOutwardNormals(t, res)
}

func TestTetraInnerScaledAboutCentre(t *testing.T) {
	c := DefaultTetraCloak()
	c.Size = 2
	_, res := populate(t, c)
	rho := c.InnerEMFraction / c.InnerFraction

	q := r3.Vec{X: 0.1, Y: 0.05, Z: -0.08}
	want := r3.Scale(rho, q)
	for k, corner := range tetraCorners {
		var names []string
		for i, o := range tetraCorners {
			if i != k {
				names = append(names, o.name)
			}
		}
		outer := "outer " + strings.Join(names, "")
		inner := "inner " + strings.ToLower(strings.Join(names, ""))
		got, err := res.Trace(q, r3.Scale(-1, corner.dir), inner, outer)
		require.NoError(t, err)
		nearVec(t, want, got, 1e-9, "through face opposite", corner.name)
	}
}

func TestTetraCellMapsImageVertices(t *testing.T) {
	c := DefaultTetraCloak()
	c.Centre = r3.Vec{X: -1, Y: 0.5, Z: 2}
	topo, err := c.Topology()
	require.NoError(t, err)

	// Each cell map takes every vertex of its cell to the vertex's EM
	// position. Outer corners stay put.
	for _, cell := range topo.Cells {
		m, ok := topo.Maps[cell.Name]
		require.True(t, ok, cell.Name)
		for _, name := range cell.Vertices {
			v, err := topo.Vertex(name)
			require.NoError(t, err)
			got, err := m.Apply(v.Pos)
			require.NoError(t, err)
			nearVec(t, v.EM, got, 1e-9, cell.Name, name)
		}
	}
}

func TestTetraFrustumsAreHomologiesAboutCentre(t *testing.T) {
	c := DefaultTetraCloak()
	c.Centre = r3.Vec{X: 0.4, Y: 1, Z: -0.3}
	c.InnerEMFraction = 0.35
	topo, err := c.Topology()
	require.NoError(t, err)

	// The glens through the centre imaging one inner vertex agrees with
	// the frustum map everywhere.
	q := r3.Add(c.Centre, r3.Vec{X: 0.05, Y: -0.1, Z: 0.12})
	for _, f := range topo.Faces {
		if f.Outer != Outside {
			continue
		}
		pl, _, err := topo.FacePlane(f)
		require.NoError(t, err)
		cell, ok := topo.Cell(f.Inner)
		require.True(t, ok)
		v, err := topo.Vertex(cell.Vertices[3])
		require.NoError(t, err)
		g, err := optics.GlensFromConjugatePair(pl, c.Centre, v.Pos, v.EM)
		require.NoError(t, err, f.Name)

		want, err := g.Collineation().Apply(q)
		require.NoError(t, err)
		got, err := topo.Maps[f.Inner].Apply(q)
		require.NoError(t, err)
		nearVec(t, want, got, 1e-9, f.Name)
	}
}
