package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/samber/lo"
)

// ErrIntegrity is wrapped by every *IntegrityError. It indicates a
// tolerance or geometry bug, never a user mistake.
var ErrIntegrity = errors.New("graph: adjacency integrity violation")

// Severity indicates whether a finding blocks the build or is merely
// informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks the build
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Violation describes a single integrity finding.
type Violation struct {
	Triangle kernel.TriangleID // offending triangle
	Message  string            // human-readable description
	Severity Severity          // error or warning
}

func (v Violation) Error() string {
	return fmt.Sprintf("[%s] triangle %d: %s", v.Severity, v.Triangle, v.Message)
}

func errorf(id kernel.TriangleID, format string, args ...any) Violation {
	return Violation{Triangle: id, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

func warnf(id kernel.TriangleID, format string, args ...any) Violation {
	return Violation{Triangle: id, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// IntegrityError aggregates the blocking findings of a build.
type IntegrityError struct {
	Violations []Violation
}

func (e *IntegrityError) Error() string {
	const shown = 3
	var b strings.Builder
	fmt.Fprintf(&b, "graph: %d integrity violation(s)", len(e.Violations))
	for i, v := range e.Violations {
		if i == shown {
			fmt.Fprintf(&b, "; ... %d more", len(e.Violations)-shown)
			break
		}
		b.WriteString("; ")
		b.WriteString(v.Error())
	}
	return b.String()
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// validateSymmetry checks B ∈ neighbors(A) ⇔ A ∈ neighbors(B).
func validateSymmetry(g *Graph) []Violation {
	var out []Violation
	for _, id := range g.ids {
		for _, n := range g.neighbors[id] {
			if !lo.Contains(g.neighbors[n], id) {
				out = append(out, errorf(id, "links to %d but %d does not link back", n, n))
			}
		}
	}
	return out
}

// DegreeHistogram counts triangles by neighbor count. For a closed mesh at
// uniform depth every triangle lands in bucket 3.
func (g *Graph) DegreeHistogram() [4]int {
	var h [4]int
	for _, id := range g.ids {
		h[len(g.neighbors[id])]++
	}
	return h
}
