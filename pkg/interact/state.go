// Package interact implements selection, hover and navigation as a pure
// state machine. Every transition is a function (State, Event) -> State;
// state values are never mutated in place.
package interact

import (
	"fmt"
	"strings"

	"github.com/chazu/octasphere/pkg/kernel"
)

// Mode is the top-level interaction mode.
type Mode int

const (
	Idle       Mode = iota // nothing selected
	Selected               // one triangle selected, overlay off
	Navigating             // one triangle selected, overlay on
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Navigating:
		return "navigating"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the complete interaction state.
//
// Selected is kernel.NoTriangle exactly when Mode is Idle. Hovered and Path
// are only populated while Navigating. Pointer follows the raw pointer
// target in every mode and never drives a transition.
type State struct {
	Mode     Mode
	Selected kernel.TriangleID
	Previous kernel.TriangleID // selection before the last move, for "right"
	Hovered  kernel.TriangleID
	Pointer  kernel.TriangleID
	Path     []kernel.TriangleID
}

// Initial returns the Idle state with nothing selected or hovered.
func Initial() State {
	return State{
		Mode:     Idle,
		Selected: kernel.NoTriangle,
		Previous: kernel.NoTriangle,
		Hovered:  kernel.NoTriangle,
		Pointer:  kernel.NoTriangle,
	}
}

// HasSelection reports whether a triangle is selected.
func (s State) HasSelection() bool {
	return s.Selected != kernel.NoTriangle
}

// HasPath reports whether a path preview is available.
func (s State) HasPath() bool {
	return len(s.Path) > 0
}

func (s State) String() string {
	var b strings.Builder
	b.WriteString(s.Mode.String())
	if s.HasSelection() {
		fmt.Fprintf(&b, " selected=%d", s.Selected)
	}
	if s.Hovered != kernel.NoTriangle {
		fmt.Fprintf(&b, " hovered=%d", s.Hovered)
	}
	if s.HasPath() {
		fmt.Fprintf(&b, " path=%v", s.Path)
	}
	return b.String()
}

// selectOnly returns the Selected state for id, remembering prev.
func (s State) selectOnly(id, prev kernel.TriangleID) State {
	return State{
		Mode:     Selected,
		Selected: id,
		Previous: prev,
		Hovered:  kernel.NoTriangle,
		Pointer:  s.Pointer,
	}
}

// withoutHover drops hover and path preview.
func (s State) withoutHover() State {
	s.Hovered = kernel.NoTriangle
	s.Path = nil
	return s
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// Event is an input to Reduce.
type Event interface {
	event()
}

// Click is a pointer click on a triangle.
type Click struct{ ID kernel.TriangleID }

// ClickBackground is a click that hit no triangle.
type ClickBackground struct{}

// Toggle switches the navigation overlay.
type Toggle struct{}

// Key is a directional key press.
type Key struct{ Dir Direction }

// PointerOver reports the triangle under the pointer.
type PointerOver struct{ ID kernel.TriangleID }

// PointerOut reports that the pointer left the sphere.
type PointerOut struct{}

func (Click) event()           {}
func (ClickBackground) event() {}
func (Toggle) event()          {}
func (Key) event()             {}
func (PointerOver) event()     {}
func (PointerOut) event()      {}

// Direction is a directional key.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [...]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection accepts "up", "down", "left" or "right", case-insensitive,
// with or without arrow-key prefixes ("ArrowUp").
func ParseDirection(s string) (Direction, error) {
	name := strings.TrimPrefix(strings.ToLower(s), "arrow")
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("interact: unknown direction %q", s)
}
