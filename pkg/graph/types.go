package graph

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultSnapDecimals matches the documented vertex tolerance of 0.001 at
// radius 2.
const DefaultSnapDecimals = 3

// VertexKey is a vertex snapped to the quantizer's grid.
type VertexKey [3]int64

// EdgeKey is an undirected edge: two vertex keys in lexicographic order.
type EdgeKey [2]VertexKey

// Quantizer snaps coordinates to a fixed number of decimal places. It is
// the single definition of vertex equality used by the graph.
type Quantizer struct {
	Decimals int
	scale    float64
}

// NewQuantizer returns a quantizer rounding to decimals places.
func NewQuantizer(decimals int) Quantizer {
	return Quantizer{Decimals: decimals, scale: math.Pow(10, float64(decimals))}
}

// QuantizerForEpsilon returns the coarsest quantizer that still resolves
// differences of eps, e.g. eps 0.001 -> 3 decimals.
func QuantizerForEpsilon(eps float64) Quantizer {
	if eps <= 0 || eps >= 1 {
		return NewQuantizer(DefaultSnapDecimals)
	}
	return NewQuantizer(int(math.Ceil(-math.Log10(eps) - 1e-9)))
}

// Epsilon returns the grid spacing.
func (q Quantizer) Epsilon() float64 {
	return 1 / q.scale
}

// Key snaps v to the grid.
func (q Quantizer) Key(v v3.Vec) VertexKey {
	return VertexKey{
		int64(math.Round(v.X * q.scale)),
		int64(math.Round(v.Y * q.scale)),
		int64(math.Round(v.Z * q.scale)),
	}
}

// Edge returns the canonical key for the undirected edge ab.
func Edge(a, b VertexKey) EdgeKey {
	if less(b, a) {
		a, b = b, a
	}
	return EdgeKey{a, b}
}

func less(a, b VertexKey) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// sharedVertices counts the keys a and b have in common. Keys within a
// triangle are assumed distinct; degenerate triangles are rejected before
// this is called.
func sharedVertices(a, b [3]VertexKey) int {
	n := 0
	for _, ka := range a {
		for _, kb := range b {
			if ka == kb {
				n++
				break
			}
		}
	}
	return n
}
