package graph

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/octasphere/pkg/kernel"
)

// Options configures a graph build.
type Options struct {
	// Quantizer decides vertex equality. The zero value uses
	// DefaultSnapDecimals.
	Quantizer Quantizer
}

// sliverRatio is the shortest-to-longest edge ratio below which a triangle
// is reported as a warning.
const sliverRatio = 1.0 / 16

// Graph is the immutable triangle adjacency graph produced by Build.
// It is never mutated in place; each rebuild produces a new graph.
type Graph struct {
	ids       []kernel.TriangleID
	triangles map[kernel.TriangleID]kernel.Triangle
	neighbors map[kernel.TriangleID][]kernel.TriangleID
	edges     int
	warnings  []Violation
	quantizer Quantizer
}

// triangleEdges enumerates a face's edges as vertex index pairs. Neighbor
// order in the graph follows this order.
var triangleEdges = [3][2]int{{0, 1}, {1, 2}, {2, 0}}

// Build indexes every triangle's edges and links triangles sharing exactly
// two vertices. It runs in O(n) over the triangle list.
//
// Integrity violations (duplicate identifiers or triangles, degenerate
// triangles, more than three neighbors, unmatched edges, asymmetric links)
// are collected and returned as an *IntegrityError; no graph is returned in
// that case. Sliver triangles are reported as warnings.
func Build(tris []kernel.Triangle, opts Options) (*Graph, error) {
	q := opts.Quantizer
	if q.scale == 0 {
		d := q.Decimals
		if d <= 0 {
			d = DefaultSnapDecimals
		}
		q = NewQuantizer(d)
	}

	g := &Graph{
		ids:       make([]kernel.TriangleID, 0, len(tris)),
		triangles: make(map[kernel.TriangleID]kernel.Triangle, len(tris)),
		neighbors: make(map[kernel.TriangleID][]kernel.TriangleID, len(tris)),
		quantizer: q,
	}
	var violations []Violation

	keys := make([][3]VertexKey, len(tris))
	owners := make(map[EdgeKey][]int, len(tris)*3/2)

	for i, t := range tris {
		if _, dup := g.triangles[t.ID]; dup {
			violations = append(violations, errorf(t.ID, "duplicate triangle identifier"))
			continue
		}
		g.ids = append(g.ids, t.ID)
		g.triangles[t.ID] = t

		for j, v := range t.Face {
			keys[i][j] = q.Key(v)
		}
		if keys[i][0] == keys[i][1] || keys[i][1] == keys[i][2] || keys[i][2] == keys[i][0] {
			violations = append(violations, errorf(t.ID, "degenerate triangle: vertices collapse at %d decimals", q.Decimals))
			continue
		}
		if r := edgeRatio(t.Face); r < sliverRatio {
			g.warnings = append(g.warnings, warnf(t.ID, "sliver triangle: shortest edge is %.3f of the longest", r))
		}
		for _, e := range triangleEdges {
			ek := Edge(keys[i][e[0]], keys[i][e[1]])
			owners[ek] = append(owners[ek], i)
		}
	}
	if len(violations) > 0 {
		return nil, &IntegrityError{Violations: violations}
	}

	for i, t := range tris {
		list := make([]kernel.TriangleID, 0, 3)
		for _, e := range triangleEdges {
			matched := false
			for _, j := range owners[Edge(keys[i][e[0]], keys[i][e[1]])] {
				if j == i {
					continue
				}
				switch sharedVertices(keys[i], keys[j]) {
				case 3:
					if i < j && e == triangleEdges[0] {
						violations = append(violations, errorf(t.ID, "duplicate of triangle %d", tris[j].ID))
					}
				case 2:
					matched = true
					if !slices.Contains(list, tris[j].ID) {
						list = append(list, tris[j].ID)
					}
				}
			}
			if !matched {
				violations = append(violations, errorf(t.ID, "edge %d-%d has no neighbor", e[0], e[1]))
			}
		}
		if len(list) > 3 {
			violations = append(violations, errorf(t.ID, "%d neighbors, at most 3 allowed", len(list)))
		}
		g.neighbors[t.ID] = list
		g.edges += len(list)
	}
	g.edges /= 2

	violations = append(violations, validateSymmetry(g)...)
	if len(violations) > 0 {
		return nil, &IntegrityError{Violations: violations}
	}
	return g, nil
}

func edgeRatio(f kernel.Face) float64 {
	lo, hi := math.Inf(1), 0.0
	for _, e := range triangleEdges {
		l := f[e[1]].Sub(f[e[0]]).Length()
		lo, hi = min(lo, l), max(hi, l)
	}
	return lo / hi
}

// Neighbors returns the neighbors of id in insertion order. The slice is
// shared with the graph and must not be modified.
func (g *Graph) Neighbors(id kernel.TriangleID) []kernel.TriangleID {
	return g.neighbors[id]
}

// Has reports whether id is a triangle of this graph.
func (g *Graph) Has(id kernel.TriangleID) bool {
	_, ok := g.triangles[id]
	return ok
}

// Triangle returns the triangle with the given identifier.
func (g *Graph) Triangle(id kernel.TriangleID) (kernel.Triangle, bool) {
	t, ok := g.triangles[id]
	return t, ok
}

// IDs returns all triangle identifiers in build order.
func (g *Graph) IDs() []kernel.TriangleID {
	return slices.Clone(g.ids)
}

// Len returns the number of triangles.
func (g *Graph) Len() int {
	return len(g.ids)
}

// EdgeCount returns the number of undirected adjacency links.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Warnings returns the advisory findings of the build.
func (g *Graph) Warnings() []Violation {
	return g.warnings
}

// Quantizer returns the quantizer the graph was built with.
func (g *Graph) Quantizer() Quantizer {
	return g.quantizer
}

func (g *Graph) String() string {
	return fmt.Sprintf("graph(%d triangles, %d links)", len(g.ids), g.edges)
}
