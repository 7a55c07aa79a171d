package tessellate

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/chazu/octasphere/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// StitchBase is the first local slot handed out by Conform. Subdivision
// slots of every depth lie below it.
var StitchBase = levelBase(kernel.MaxLevel + 1)

var (
	// ErrStitched is returned by DecodeID for identifiers issued by Conform.
	ErrStitched = errors.New("tessellate: stitched triangle has no subdivision index")

	// ErrStitchOverflow is returned when a region needs more stitched
	// triangles than its identifier range holds.
	ErrStitchOverflow = errors.New("tessellate: stitch slots exhausted")
)

// IsStitched reports whether id was issued by Conform rather than Build.
func IsStitched(id kernel.TriangleID) bool {
	return id >= 0 && int64(id)%RegionStride >= StitchBase
}

type seamPoint struct {
	t float64
	v v3.Vec
}

// Conform removes the T-junctions left where a region meets a finer
// neighbor. Each triangle whose seam edge carries vertices of the finer
// side is replaced by a fan around its projected centroid that passes
// through those vertices, so every seam edge pairs with exactly one edge
// across it.
//
// The first triangle of a fan keeps the original identifier; the rest take
// stitch slots of the same region in build order. Regions that need no
// change are returned as is. The input regions are never modified. eps is
// the vertex equality tolerance.
func Conform(regions []*Region, radius, eps float64) ([]*Region, error) {
	out := slices.Clone(regions)
	if !mixed(regions) {
		return out, nil
	}
	seams := seamIndex(regions, eps, eps/radius)

	for ri, r := range regions {
		if r == nil {
			continue
		}
		var tris []kernel.Triangle
		next := StitchBase
		for ti, t := range r.Triangles {
			poly, split := outline(t.Face, &seams, eps, eps/radius)
			if !split {
				if tris != nil {
					tris = append(tris, t)
				}
				continue
			}
			if tris == nil {
				tris = make([]kernel.Triangle, ti, len(r.Triangles)+len(poly))
				copy(tris, r.Triangles[:ti])
			}

			c := kernel.Project(kernel.Centroid(t.Face), radius)
			for i := range poly {
				id := t.ID
				if i > 0 {
					if next >= RegionStride {
						return nil, fmt.Errorf("%w: region %d", ErrStitchOverflow, r.Index)
					}
					id = kernel.TriangleID(int64(r.Index)*RegionStride + next)
					next++
				}
				tris = append(tris, kernel.Triangle{
					ID:   id,
					Face: kernel.Face{poly[i], poly[(i+1)%len(poly)], c},
				})
			}
		}
		if tris != nil {
			out[ri] = &Region{Index: r.Index, Depth: r.Depth, Base: r.Base, Triangles: tris}
		}
	}
	return out, nil
}

func mixed(regions []*Region) bool {
	depth := -1
	for _, r := range regions {
		if r == nil {
			continue
		}
		if depth >= 0 && r.Depth != depth {
			return true
		}
		depth = r.Depth
	}
	return false
}

// seamIndex collects the distinct vertices on each octahedron edge, sorted
// by their angle along it. Points closer than tol radians are merged.
func seamIndex(regions []*Region, eps, tol float64) [kernel.SeamCount][]seamPoint {
	var seams [kernel.SeamCount][]seamPoint
	for _, r := range regions {
		if r == nil {
			continue
		}
		for _, t := range r.Triangles {
			for k := range 3 {
				a, b := t.Face[k], t.Face[(k+1)%3]
				s := kernel.SeamOf(a, b, eps)
				if s < 0 {
					continue
				}
				seams[s] = append(seams[s],
					seamPoint{t: kernel.SeamParam(s, a), v: a},
					seamPoint{t: kernel.SeamParam(s, b), v: b},
				)
			}
		}
	}
	for i, pts := range seams {
		slices.SortFunc(pts, func(a, b seamPoint) int { return cmp.Compare(a.t, b.t) })
		seams[i] = slices.CompactFunc(pts, func(a, b seamPoint) bool { return math.Abs(a.t-b.t) < tol })
	}
	return seams
}

// outline walks the boundary of f and inserts the seam vertices lying
// strictly inside each of its seam edges. split reports whether any were
// inserted.
func outline(f kernel.Face, seams *[kernel.SeamCount][]seamPoint, eps, tol float64) (poly []v3.Vec, split bool) {
	poly = make([]v3.Vec, 0, 3)
	for k := range 3 {
		a, b := f[k], f[(k+1)%3]
		poly = append(poly, a)

		s := kernel.SeamOf(a, b, eps)
		if s < 0 {
			continue
		}
		ta, tb := kernel.SeamParam(s, a), kernel.SeamParam(s, b)
		inner := between(seams[s], min(ta, tb)+tol, max(ta, tb)-tol)
		if len(inner) == 0 {
			continue
		}
		split = true
		if ta < tb {
			for _, p := range inner {
				poly = append(poly, p.v)
			}
		} else {
			for i := len(inner) - 1; i >= 0; i-- {
				poly = append(poly, inner[i].v)
			}
		}
	}
	return poly, split
}

// between returns the points of the sorted slice pts with lo <= t < hi.
func between(pts []seamPoint, lo, hi float64) []seamPoint {
	if hi <= lo {
		return nil
	}
	search := func(p seamPoint, t float64) int { return cmp.Compare(p.t, t) }
	i, _ := slices.BinarySearchFunc(pts, lo, search)
	j, _ := slices.BinarySearchFunc(pts, hi, search)
	return pts[i:j]
}
