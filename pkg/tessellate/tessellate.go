// Package tessellate builds the eight octahedron regions of the sphere.
// Each region is subdivided by the geometry kernel at its own depth and its
// triangles receive globally unique identifiers packed from
// (region, depth, local index).
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/octasphere/pkg/kernel"
)

// RegionStride separates identifier ranges of neighboring regions. It must
// exceed levelBase(kernel.MaxLevel+1), the number of local slots used by
// all depths of one region.
const RegionStride = 100000

// ErrInvalidRegion is returned for a region index outside [0, 8).
var ErrInvalidRegion = errors.New("tessellate: invalid region index")

// Region is one octahedron face subdivided to Depth. Regions are values:
// a depth change builds a new Region rather than mutating the old one.
type Region struct {
	Index     int
	Depth     int
	Base      kernel.Face
	Triangles []kernel.Triangle
}

// levelBase returns the first local slot used at depth d. Slots for depth d
// occupy [(4^d-1)/3, (4^(d+1)-1)/3), so identifiers issued at different
// depths never coincide.
func levelBase(d int) int64 {
	return (int64(1)<<(2*uint(d)) - 1) / 3
}

// EncodeID packs a triangle identifier.
func EncodeID(region, depth, local int) kernel.TriangleID {
	return kernel.TriangleID(int64(region)*RegionStride + levelBase(depth) + int64(local))
}

// DecodeID unpacks a triangle identifier produced by EncodeID. Identifiers
// issued by Conform fail with ErrStitched.
func DecodeID(id kernel.TriangleID) (region, depth, local int, err error) {
	if id < 0 {
		return 0, 0, 0, fmt.Errorf("tessellate: negative triangle id %d", id)
	}
	region = int(int64(id) / RegionStride)
	if region >= kernel.RegionCount {
		return 0, 0, 0, fmt.Errorf("%w: id %d decodes to region %d", ErrInvalidRegion, id, region)
	}
	slot := int64(id) % RegionStride
	if slot >= StitchBase {
		return region, 0, 0, fmt.Errorf("%w: id %d", ErrStitched, id)
	}
	for d := 0; d <= kernel.MaxLevel; d++ {
		if slot < levelBase(d+1) {
			return region, d, int(slot - levelBase(d)), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("tessellate: id %d has no valid depth", id)
}

// RegionOf returns the region index encoded in id.
func RegionOf(id kernel.TriangleID) int {
	return int(int64(id) / RegionStride)
}

// Build subdivides region index at depth. The base vertices are projected
// to radius before subdivision so neighboring regions share bit-identical
// seam vertices.
func Build(index, depth int, radius float64) (*Region, error) {
	if index < 0 || index >= kernel.RegionCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRegion, index)
	}
	base := kernel.BaseFace(index, radius)
	faces, err := kernel.Subdivide(base, depth, radius)
	if err != nil {
		return nil, fmt.Errorf("tessellate: region %d: %w", index, err)
	}

	tris := make([]kernel.Triangle, len(faces))
	for i, f := range faces {
		tris[i] = kernel.Triangle{ID: EncodeID(index, depth, i), Face: f}
	}
	return &Region{
		Index:     index,
		Depth:     depth,
		Base:      base,
		Triangles: tris,
	}, nil
}

// BuildAll builds every region at its depth.
func BuildAll(depths [kernel.RegionCount]int, radius float64) ([kernel.RegionCount]*Region, error) {
	var regions [kernel.RegionCount]*Region
	for i, d := range depths {
		r, err := Build(i, d, radius)
		if err != nil {
			return regions, err
		}
		regions[i] = r
	}
	return regions, nil
}

// Union concatenates the triangles of all regions in region order. Nil
// regions are skipped.
func Union(regions []*Region) []kernel.Triangle {
	n := 0
	for _, r := range regions {
		if r != nil {
			n += len(r.Triangles)
		}
	}
	out := make([]kernel.Triangle, 0, n)
	for _, r := range regions {
		if r != nil {
			out = append(out, r.Triangles...)
		}
	}
	return out
}

// Uniform reports whether all regions share one depth.
func Uniform(depths [kernel.RegionCount]int) bool {
	for _, d := range depths[1:] {
		if d != depths[0] {
			return false
		}
	}
	return true
}
