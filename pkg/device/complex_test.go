package device

import (
	"strings"
	"testing"

	"github.com/chazu/tocloak/pkg/optics"
	"github.com/chazu/tocloak/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestOmnidirectionalLensStructure(t *testing.T) {
	c := OmnidirectionalLens()
	assert.Len(t, c.Vertices, 6)
	assert.Len(t, c.Edges, 14)
	assert.Len(t, c.Triangles(), 16)
	// {T,B0,B1,B2} and {U,B0,B1,B2} contain other vertices.
	assert.Len(t, c.Cells(), 7)

	topo, err := c.Topology()
	require.NoError(t, err)
	assert.Len(t, topo.Faces, 16)
	outside := 0
	for _, f := range topo.Faces {
		if f.Outer == Outside {
			outside++
		}
	}
	assert.Equal(t, 4, outside)
	assert.Len(t, topo.Edges(), 14)
}

func TestOmnidirectionalLensFacesAreLenses(t *testing.T) {
	_, res := populate(t, OmnidirectionalLens())
	require.Empty(t, res.Report.Failed())
	assert.Equal(t, 16, res.Report.Counts()[optics.KindIdealLens])
	checkOutwardNormals(t, res)

	// Boundary faces match the three-sided pyramid cloak.
	p := DefaultPyramidCloak()
	p.Sides = 3
	fl, err := p.FocalLengths()
	require.NoError(t, err)
	for _, name := range []string{"face T-B0-B1", "face T-B1-B2", "face T-B0-B2"} {
		assert.InDelta(t, fl.Outer, lensOf(t, res, name).F, 1e-7, name)
	}
	assert.InDelta(t, fl.Base, lensOf(t, res, "face B0-B1-B2").F, 1e-7)
	assert.InDelta(t, fl.UpperInner, lensOf(t, res, "face U-B0-B1").F, 1e-7)
	assert.InDelta(t, fl.LowerInner, lensOf(t, res, "face L-B0-B1").F, 1e-7)
}

func TestSimplicialComplexErrors(t *testing.T) {
	base := []r3.Vec{{X: 1}, {X: -0.5, Y: 0.866}, {X: -0.5, Y: -0.866}}
	tetra := append(append([]r3.Vec(nil), base...), r3.Vec{Z: 1})
	tetraEdges := [][2]int{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}}

	tests := []struct {
		name     string
		names    []string
		vertices []r3.Vec
		em       []r3.Vec
		edges    [][2]int
		wantErr  string
	}{
		{
			name:     "edge index out of range",
			vertices: tetra,
			edges:    append(append([][2]int(nil), tetraEdges...), [2]int{0, 7}),
			wantErr:  "outside",
		},
		{
			name:     "negative edge index",
			vertices: tetra,
			edges:    append(append([][2]int(nil), tetraEdges...), [2]int{-1, 2}),
			wantErr:  "outside",
		},
		{
			name:     "self edge",
			vertices: tetra,
			edges:    append(append([][2]int(nil), tetraEdges...), [2]int{2, 2}),
			wantErr:  "itself",
		},
		{
			name:     "duplicate edge",
			vertices: tetra,
			edges:    append(append([][2]int(nil), tetraEdges...), [2]int{3, 0}),
			wantErr:  "twice",
		},
		{
			name:     "name count mismatch",
			names:    []string{"A", "B"},
			vertices: tetra,
			edges:    tetraEdges,
			wantErr:  "names",
		},
		{
			name:     "EM count mismatch",
			vertices: tetra,
			em:       base,
			edges:    tetraEdges,
			wantErr:  "EM positions",
		},
		{
			name:     "no cells",
			vertices: base,
			edges:    [][2]int{{0, 1}, {1, 2}, {2, 0}},
			wantErr:  "no tetrahedral cells",
		},
		{
			name: "triangle bounds three cells",
			vertices: append(append([]r3.Vec(nil), base...),
				r3.Vec{X: 0.2, Y: 0.2, Z: 1},
				r3.Vec{X: 0.2, Y: 0.2, Z: -1},
				r3.Vec{X: 1, Y: 1, Z: 1},
			),
			edges: [][2]int{
				{0, 1}, {1, 2}, {2, 0},
				{0, 3}, {1, 3}, {2, 3},
				{0, 4}, {1, 4}, {2, 4},
				{0, 5}, {1, 5}, {2, 5},
			},
			wantErr: "bounds 3 cells",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimplicialComplex(tt.names, tt.vertices, tt.em, tt.edges)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInconsistentComplex)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q", err)
		})
	}
}

func TestSimplicialComplexSingleCell(t *testing.T) {
	vertices := []r3.Vec{{X: 1}, {X: -0.5, Y: 0.866}, {X: -0.5, Y: -0.866}, {Z: 1}}
	c, err := NewSimplicialComplex(nil, vertices, nil, [][2]int{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []string{"V0", "V1", "V2", "V3"}, c.Names)
	assert.Equal(t, [][4]int{{0, 1, 2, 3}}, c.Cells())

	// With EM positions equal to the physical ones every face is clear.
	_, res := populate(t, c)
	assert.Equal(t, 4, res.Report.Counts()[optics.KindTransparent])
}

func TestMustSimplicialComplexPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustSimplicialComplex(nil, []r3.Vec{{}, {X: 1}}, nil, [][2]int{{0, 0}})
	})
}

func TestSimplicialComplexEditedEdges(t *testing.T) {
	c := OmnidirectionalLens()
	c.Edges = append(c.Edges, [2]int{0, 9})
	_, err := c.Topology()
	assert.ErrorIs(t, err, ErrInconsistentComplex)

	col := scene.NewCollection("lens")
	_, err = Populate(col, c, NewContext(nil, 1))
	assert.ErrorIs(t, err, ErrInconsistentComplex)
	assert.Zero(t, col.Len())
	assert.Nil(t, c.Cells())

	// Without the axis edges only the tetrahedron below L is empty, so
	// the cells follow the edited edge list.
	c = OmnidirectionalLens()
	c.Edges = c.Edges[:12]
	assert.Len(t, c.Triangles(), 10)
	assert.Equal(t, [][4]int{{2, 3, 4, 5}}, c.Cells())
	topo, err := c.Topology()
	require.NoError(t, err)
	assert.Len(t, topo.Cells, 1)
	assert.Len(t, topo.Faces, 4)
}

func TestSimplicialComplexLiteral(t *testing.T) {
	c := &LensSimplicialComplex{
		Vertices: []r3.Vec{{X: 1}, {X: -0.5, Y: 0.866}, {X: -0.5, Y: -0.866}, {Z: 1}},
		Edges:    [][2]int{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}},
		Display:  DefaultDisplay(),
	}
	_, res := populate(t, c)
	assert.Len(t, res.Topology.Faces, 4)
	assert.Equal(t, 4, res.Report.Counts()[optics.KindTransparent])
	_, ok := res.Topology.Cell("cell V0-V1-V2-V3")
	assert.True(t, ok)

	c.Names = []string{"A", "B", "A", "D"}
	_, err := c.Topology()
	assert.ErrorIs(t, err, ErrInconsistentComplex)

	empty := &LensSimplicialComplex{}
	_, err = empty.Topology()
	assert.ErrorIs(t, err, ErrInconsistentComplex)
}
