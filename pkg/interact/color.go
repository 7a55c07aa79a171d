package interact

import (
	"fmt"

	"github.com/chazu/octasphere/pkg/kernel"
)

// Color is the display class of a triangle.
type Color int

const (
	Default Color = iota
	HoveredBase
	SelectedColor
	NavigationHover
)

var colorNames = [...]string{"default", "hovered-base", "selected", "navigation-hover"}

// colorHex are the renderer's material colors.
var colorHex = [...]string{"#45b7d1", "#4ecdc4", "#ff6b6b", "#ffff00"}

func (c Color) String() string {
	if c < 0 || int(c) >= len(colorNames) {
		return fmt.Sprintf("Color(%d)", int(c))
	}
	return colorNames[c]
}

// Hex returns the CSS color used to draw c.
func (c Color) Hex() string {
	if c < 0 || int(c) >= len(colorHex) {
		return colorHex[Default]
	}
	return colorHex[c]
}

// MarshalText encodes c by name so JSON frames carry readable classes.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ColorOf derives the color of id from s alone. Precedence: selected,
// navigation hover, pointer hover outside navigation, default.
func ColorOf(s State, id kernel.TriangleID) Color {
	switch {
	case id == kernel.NoTriangle:
		return Default
	case s.HasSelection() && id == s.Selected:
		return SelectedColor
	case s.Mode == Navigating && id == s.Hovered:
		return NavigationHover
	case s.Mode != Navigating && id == s.Pointer:
		return HoveredBase
	}
	return Default
}
