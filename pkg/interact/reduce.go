package interact

import (
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/pathfind"
	"github.com/samber/lo"
)

// Deps are the read-only collaborators a transition may consult.
type Deps struct {
	Graph pathfind.Graph

	// FindPath computes path previews. When nil, pathfind.Find over Graph
	// is used.
	FindPath func(start, end kernel.TriangleID) ([]kernel.TriangleID, error)
}

func (d Deps) path(start, end kernel.TriangleID) []kernel.TriangleID {
	find := d.FindPath
	if find == nil {
		find = func(a, b kernel.TriangleID) ([]kernel.TriangleID, error) {
			return pathfind.Find(d.Graph, a, b)
		}
	}
	p, err := find(start, end)
	if err != nil {
		return nil
	}
	return p
}

// Reduce applies e to s. Events that do not apply in the current mode, or
// that name a triangle missing from the graph, leave s unchanged.
func Reduce(s State, e Event, d Deps) State {
	switch ev := e.(type) {
	case Click:
		return click(s, ev.ID, d)
	case ClickBackground:
		if s.Mode == Navigating {
			s = s.withoutHover()
			s.Mode = Selected
		}
		return s
	case Toggle:
		switch s.Mode {
		case Selected:
			s = s.withoutHover()
			s.Mode = Navigating
		case Navigating:
			s = s.withoutHover()
			s.Mode = Selected
		}
		return s
	case Key:
		return move(s, ev.Dir, d)
	case PointerOver:
		return hover(s, ev.ID, d)
	case PointerOut:
		s.Pointer = kernel.NoTriangle
		if s.Mode == Navigating {
			s = s.withoutHover()
		}
		return s
	}
	return s
}

func click(s State, id kernel.TriangleID, d Deps) State {
	if !d.Graph.Has(id) {
		return s
	}
	switch s.Mode {
	case Idle:
		return s.selectOnly(id, kernel.NoTriangle)
	default:
		if id == s.Selected {
			next := Initial()
			next.Pointer = s.Pointer
			return next
		}
		return s.selectOnly(id, s.Selected)
	}
}

func hover(s State, id kernel.TriangleID, d Deps) State {
	if !d.Graph.Has(id) {
		return s
	}
	s.Pointer = id
	if s.Mode != Navigating || id == s.Hovered {
		return s
	}
	s.Hovered = id
	s.Path = nil
	if id != s.Selected {
		s.Path = d.path(s.Selected, id)
	}
	return s
}

func move(s State, dir Direction, d Deps) State {
	if s.Mode != Selected {
		return s
	}
	ns := d.Graph.Neighbors(s.Selected)
	if len(ns) == 0 {
		return s
	}
	next := Neighbor(ns, dir, s.Previous)
	return s.selectOnly(next, s.Selected)
}

// Neighbor maps a direction to one of ns, which must be non-empty. The
// mapping is by neighbor index and has no geometric meaning: up is the
// first neighbor, down the second (else first), left the third (else
// last), and right the neighbor after prev (else first).
func Neighbor(ns []kernel.TriangleID, dir Direction, prev kernel.TriangleID) kernel.TriangleID {
	switch dir {
	case Down:
		if len(ns) > 1 {
			return ns[1]
		}
	case Left:
		if len(ns) > 2 {
			return ns[2]
		}
		return ns[len(ns)-1]
	case Right:
		if i := lo.IndexOf(ns, prev); i >= 0 {
			return ns[(i+1)%len(ns)]
		}
	}
	return ns[0]
}

// Reconcile repairs s against a rebuilt graph. A selection that no longer
// exists resets to Idle; a stale hover or pointer target is cleared; a
// live path preview is recomputed on the new graph.
func Reconcile(s State, d Deps) State {
	if s.HasSelection() && !d.Graph.Has(s.Selected) {
		next := Initial()
		if d.Graph.Has(s.Pointer) {
			next.Pointer = s.Pointer
		}
		return next
	}
	if s.Previous != kernel.NoTriangle && !d.Graph.Has(s.Previous) {
		s.Previous = kernel.NoTriangle
	}
	if s.Pointer != kernel.NoTriangle && !d.Graph.Has(s.Pointer) {
		s.Pointer = kernel.NoTriangle
	}
	if s.Hovered == kernel.NoTriangle {
		return s
	}
	if !d.Graph.Has(s.Hovered) {
		return s.withoutHover()
	}
	s.Path = nil
	if s.Hovered != s.Selected {
		s.Path = d.path(s.Selected, s.Hovered)
	}
	return s
}
