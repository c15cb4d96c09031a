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

func TestHypercubeNetFaces(t *testing.T) {
	n := DefaultHypercubeNet()
	_, res := populate(t, n)
	topo := res.Topology
	assert.Len(t, topo.Cells, 8)
	assert.Len(t, topo.Vertices, 36)
	assert.Len(t, topo.Faces, 34)
	assert.Equal(t, 34, res.Report.Counts()[optics.KindTeleporting])
	checkOutwardNormals(t, res)

	// Every face has exactly one partner, named the other way round.
	names := make(map[string]bool)
	for _, f := range topo.Faces {
		names[f.Name] = true
	}
	for _, f := range topo.Faces {
		parts := strings.Split(f.Name, " face ")
		require.Len(t, parts, 2)
		assert.True(t, names[parts[1]+" face "+parts[0]], f.Name)
	}
}

func TestHypercubeNetTeleportsOntoPartner(t *testing.T) {
	n := DefaultHypercubeNet()
	n.Centre = r3.Vec{X: 2, Y: -1, Z: 0.5}
	n.U = r3.Vec{X: 1, Y: 1}
	n.V = r3.Vec{X: -1, Y: 1}
	n.W = r3.Vec{Z: 1}
	n.Side = 0.5
	_, res := populate(t, n)
	topo := res.Topology

	faces := make(map[string]Face)
	for _, f := range topo.Faces {
		faces[f.Name] = f
	}
	const eps = 1e-3
	for _, f := range topo.Faces {
		parts := strings.Split(f.Name, " face ")
		partner := faces[parts[1]+" face "+parts[0]]

		pl, pts, err := topo.FacePlane(f)
		require.NoError(t, err)
		ppl, ppts, err := topo.FacePlane(partner)
		require.NoError(t, err)

		// A point just beyond the face lands just inside the partner's cube.
		q := r3.Add(geom.Centroid(pts...), r3.Scale(eps, pl.Normal))
		got, err := res.Trace(q, pl.Normal, f.Name)
		require.NoError(t, err)
		want := r3.Sub(geom.Centroid(ppts...), r3.Scale(eps, ppl.Normal))
		nearVec(t, want, got, 1e-9, f.Name)

		// The corners of the face land on the corners of the partner.
		for _, p := range pts {
			img, err := res.Surfaces[f.Name].ImagePosition(p, pl.Normal)
			require.NoError(t, err)
			found := false
			for _, pp := range ppts {
				found = found || geom.Near(img, pp, 1e-9)
			}
			assert.True(t, found, "%s corner %v", f.Name, p)
		}
	}
}

func TestHypercubeNetColumn(t *testing.T) {
	top := func(n *HypercubeNet) r3.Vec {
		topo, err := n.Topology()
		require.NoError(t, err)
		c, ok := topo.Cell("cube +w")
		require.True(t, ok)
		pts, err := topo.Positions(c.Vertices)
		require.NoError(t, err)
		return geom.Centroid(pts...)
	}
	n := DefaultHypercubeNet()
	nearVec(t, r3.Vec{Z: 2}, top(n), 1e-12)

	// A W against U x V mirrors the net.
	n.W = r3.Vec{Z: -1}
	nearVec(t, r3.Vec{Z: -2}, top(n), 1e-12)

	n.W = r3.Vec{X: 1}
	_, err := n.Topology()
	assert.ErrorIs(t, err, geom.ErrDegenerateFrame)

	n = DefaultHypercubeNet()
	n.Side = 0
	_, err = n.Topology()
	assert.Error(t, err)
}
