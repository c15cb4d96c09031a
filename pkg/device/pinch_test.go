package device

import (
	"fmt"
	"testing"

	"github.com/chazu/tocloak/pkg/geom"
	"github.com/chazu/tocloak/pkg/optics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPinchWindowFaces(t *testing.T) {
	w := DefaultPinchWindow()
	_, res := populate(t, w)
	assert.Len(t, res.Topology.Faces, 20)
	assert.Empty(t, res.Report.Failed())
	counts := res.Report.Counts()
	assert.Equal(t, 12, counts[optics.KindIdealLens])
	assert.Equal(t, 8, counts[optics.KindGlens])
	checkOutwardNormals(t, res)

	front, err := res.Topology.Vertex("F")
	require.NoError(t, err)
	for i := 0; i < w.Sides; i++ {
		for _, name := range []string{"front outer %d", "front radial %d", "back radial %d"} {
			face := fmt.Sprintf(name, i)
			nearVec(t, front.Pos, lensOf(t, res, face).Principal, 1e-9, face)
		}
	}
}

func TestPinchWindowPullsCentreForward(t *testing.T) {
	w := DefaultPinchWindow()
	w.Centre = r3.Vec{X: 1, Y: -2, Z: 0.5}
	w.Axis = r3.Vec{X: 1, Z: 1}
	w.Dir = r3.Vec{Y: 1}
	w.Sides = 5
	w.Pinch = 0.7
	_, res := populate(t, w)
	assert.Empty(t, res.Report.Failed())

	front, err := res.Topology.Vertex("F")
	require.NoError(t, err)
	want := geom.Lerp(w.Centre, front.Pos, w.Pinch)
	for _, c := range res.Topology.Cells {
		got, err := res.Maps[c.Name].Apply(w.Centre)
		require.NoError(t, err)
		nearVec(t, want, got, 1e-9, c.Name)

		// Every other vertex is fixed.
		for _, name := range c.Vertices {
			v, err := res.Topology.Vertex(name)
			require.NoError(t, err)
			got, err := res.Maps[c.Name].Apply(v.Pos)
			require.NoError(t, err)
			nearVec(t, v.EM, got, 1e-9, c.Name, name)
		}
	}

	// Seen through the front, the centre appears at its EM position.
	q, err := res.Trace(w.Centre, geom.Unit(w.Axis), "base 0", "front outer 0")
	require.NoError(t, err)
	nearVec(t, want, q, 1e-9)
}

func TestPinchWindowUnpinched(t *testing.T) {
	w := DefaultPinchWindow()
	w.Pinch = 0
	_, res := populate(t, w)
	assert.Equal(t, 20, res.Report.Counts()[optics.KindTransparent])
}

func TestPinchWindowValidation(t *testing.T) {
	for name, edit := range map[string]func(*PinchWindow){
		"two sides":   func(w *PinchWindow) { w.Sides = 2 },
		"flat":        func(w *PinchWindow) { w.Depth = 0 },
		"no radius":   func(w *PinchWindow) { w.Radius = -1 },
		"full pinch":  func(w *PinchWindow) { w.Pinch = 1 },
		"negative":    func(w *PinchWindow) { w.Pinch = -0.1 },
		"axis on dir": func(w *PinchWindow) { w.Dir = w.Axis },
	} {
		t.Run(name, func(t *testing.T) {
			w := DefaultPinchWindow()
			edit(w)
			_, err := w.Topology()
			assert.Error(t, err)
		})
	}

	w := DefaultPinchWindow()
	w.Sides = 2
	_, err := w.Topology()
	assert.ErrorIs(t, err, ErrTooFewSides)
}
