package scene

import (
	"errors"
	"testing"

	"github.com/chazu/tocloak/pkg/optics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func triangle(name string) *Polygon {
	return &Polygon{
		Name:     name,
		Vertices: []r3.Vec{{}, {X: 1}, {Y: 1}},
		Normal:   r3.Vec{Z: 1},
		Surface:  optics.Transparent{},
	}
}

func buildTree() *Collection {
	root := NewCollection("device")
	faces := root.AddCollection("faces", true)
	faces.Add(triangle("a"), true)
	faces.Add(triangle("b"), false)
	frames := root.AddCollection("frames", false)
	frames.Add(&Sphere{Name: "v0", Radius: 0.1}, true)
	frames.Add(&Cylinder{Name: "e0", End: r3.Vec{X: 1}, Radius: 0.1}, true)
	return root
}

func TestCollectionAccessors(t *testing.T) {
	root := buildTree()

	assert.Equal(t, 2, root.Len())
	require.NotNil(t, root.Sub("faces"))
	assert.Nil(t, root.Sub("missing"))
	assert.Equal(t, "a", root.MustSub("faces").Lookup("a").ObjectName())
	assert.Panics(t, func() { root.MustSub("missing") })
}

func TestCollectionPlainRespectsVisibility(t *testing.T) {
	root := buildTree()

	plain := root.Plain()
	require.Len(t, plain, 1)
	assert.Equal(t, "a", plain[0].ObjectName())
	assert.Equal(t, 4, root.Count())

	require.True(t, root.SetVisible("frames", true))
	assert.Len(t, root.Plain(), 3)
	assert.False(t, root.SetVisible("nope", true))
}

func TestCollectionWalkPaths(t *testing.T) {
	root := buildTree()

	var got []string
	err := root.Walk(func(path []string, obj Object, _ bool) error {
		if obj.Kind() == KindSphere {
			got = append(got, path...)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"device", "frames"}, got)

	stop := errors.New("stop")
	n := 0
	err = root.Walk(func([]string, Object, bool) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestCollectionClear(t *testing.T) {
	root := buildTree()
	root.Clear()
	assert.Equal(t, 0, root.Len())
	assert.Equal(t, 0, root.Count())
	assert.Empty(t, root.Polygons())
}

func TestObjectKindString(t *testing.T) {
	tests := []struct {
		kind ObjectKind
		want string
	}{
		{KindPolygon, "polygon"},
		{KindSphere, "sphere"},
		{KindCylinder, "cylinder"},
		{KindCollection, "collection"},
		{ObjectKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ObjectKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
