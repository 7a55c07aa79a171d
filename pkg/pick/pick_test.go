package pick

import (
	"testing"

	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/kernel/sdfx"
	"github.com/chazu/octasphere/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func picker(t *testing.T, depths [kernel.RegionCount]int) (*Picker, []kernel.Triangle) {
	t.Helper()
	surface, err := sdfx.New(kernel.DefaultRadius)
	require.NoError(t, err)
	regions, err := tessellate.BuildAll(depths, kernel.DefaultRadius)
	require.NoError(t, err)
	return New(surface, regions[:]), tessellate.Union(regions[:])
}

func TestPickEveryCentroid(t *testing.T) {
	tests := []struct {
		name   string
		depths [kernel.RegionCount]int
	}{
		{"octahedron", [kernel.RegionCount]int{}},
		{"uniform depth 2", [kernel.RegionCount]int{2, 2, 2, 2, 2, 2, 2, 2}},
		{"mixed depths", [kernel.RegionCount]int{3, 1, 2, 0, 1, 2, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, tris := picker(t, tt.depths)
			for _, tri := range tris {
				c := kernel.Centroid(tri.Face)
				eye := c.MulScalar(4 / c.Length())

				id, ok := p.Pick(Toward(eye, v3.Vec{}))
				require.True(t, ok, "ray at triangle %d missed", tri.ID)
				assert.Equal(t, tri.ID, id)
			}
		})
	}
}

func TestPickObliqueRay(t *testing.T) {
	p, _ := picker(t, [kernel.RegionCount]int{})
	// From (5,5,5) toward the origin the first hit is in the +x+y+z face.
	id, ok := p.Pick(Toward(v3.Vec{X: 5, Y: 5, Z: 5}, v3.Vec{X: 0.3}))
	require.True(t, ok)
	assert.Equal(t, tessellate.EncodeID(0, 0, 0), id)
}

func TestPickMiss(t *testing.T) {
	p, _ := picker(t, [kernel.RegionCount]int{1, 1, 1, 1, 1, 1, 1, 1})

	tests := []struct {
		name string
		ray  Ray
	}{
		{"pointing away", Ray{Origin: v3.Vec{X: 5}, Dir: v3.Vec{X: 1}}},
		{"passing by", Ray{Origin: v3.Vec{X: 5, Y: 3}, Dir: v3.Vec{X: -1}}},
		{"inside", Ray{Origin: v3.Vec{}, Dir: v3.Vec{X: 1}}},
		{"zero direction", Ray{Origin: v3.Vec{X: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := p.Pick(tt.ray)
			assert.False(t, ok)
			assert.Equal(t, kernel.NoTriangle, id)
		})
	}
}

func TestAtPole(t *testing.T) {
	p, _ := picker(t, [kernel.RegionCount]int{})
	// A pole touches four faces; any of them is acceptable.
	id, ok := p.At(v3.Vec{Z: 2})
	require.True(t, ok)
	region, _, _, err := tessellate.DecodeID(id)
	require.NoError(t, err)
	assert.Contains(t, []int{0, 1, 6, 7}, region)
}
