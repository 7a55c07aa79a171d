package interact

import (
	"math/rand/v2"
	"testing"

	"github.com/chazu/octasphere/pkg/graph"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/pathfind"
	"github.com/chazu/octasphere/pkg/tessellate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func octahedron(t *testing.T) (*graph.Graph, Deps) {
	t.Helper()
	regions, err := tessellate.BuildAll([kernel.RegionCount]int{}, kernel.DefaultRadius)
	require.NoError(t, err)
	g, err := graph.Build(tessellate.Union(regions[:]), graph.Options{})
	require.NoError(t, err)
	return g, Deps{Graph: g}
}

// tri returns the identifier of triangle i of the depth-0 octahedron.
func tri(i int) kernel.TriangleID {
	return tessellate.EncodeID(i, 0, 0)
}

type mapGraph map[kernel.TriangleID][]kernel.TriangleID

func (m mapGraph) Has(id kernel.TriangleID) bool {
	_, ok := m[id]
	return ok
}

func (m mapGraph) Neighbors(id kernel.TriangleID) []kernel.TriangleID {
	return m[id]
}

func run(s State, d Deps, events ...Event) State {
	for _, e := range events {
		s = Reduce(s, e, d)
	}
	return s
}

// ---------------------------------------------------------------------------
// Scenario
// ---------------------------------------------------------------------------

func TestScenario_SelectToggleHoverDeselect(t *testing.T) {
	g, d := octahedron(t)
	s := Initial()
	assert.Equal(t, Idle, s.Mode)

	s = Reduce(s, Click{ID: tri(3)}, d)
	assert.Equal(t, Selected, s.Mode)
	assert.Equal(t, tri(3), s.Selected)

	s = Reduce(s, Toggle{}, d)
	assert.Equal(t, Navigating, s.Mode)
	assert.Equal(t, kernel.NoTriangle, s.Hovered)
	assert.Empty(t, s.Path)

	s = Reduce(s, PointerOver{ID: tri(7)}, d)
	assert.Equal(t, tri(7), s.Hovered)
	want, err := pathfind.Find(g, tri(3), tri(7))
	require.NoError(t, err)
	assert.Equal(t, want, s.Path)
	assert.Len(t, s.Path, 3, "faces sharing only a pole are two hops apart")
	assert.Equal(t, NavigationHover, ColorOf(s, tri(7)))
	assert.Equal(t, SelectedColor, ColorOf(s, tri(3)))

	s = Reduce(s, Click{ID: tri(3)}, d)
	assert.Equal(t, Idle, s.Mode)
	assert.False(t, s.HasSelection())
	assert.Equal(t, kernel.NoTriangle, s.Hovered)
	assert.Empty(t, s.Path)
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

func TestClickTransitions(t *testing.T) {
	_, d := octahedron(t)

	tests := []struct {
		name   string
		events []Event
		mode   Mode
		sel    kernel.TriangleID
	}{
		{"idle click selects", []Event{Click{tri(1)}}, Selected, tri(1)},
		{"click selected deselects", []Event{Click{tri(1)}, Click{tri(1)}}, Idle, kernel.NoTriangle},
		{"click other reselects", []Event{Click{tri(1)}, Click{tri(2)}}, Selected, tri(2)},
		{"click other exits navigation", []Event{Click{tri(1)}, Toggle{}, Click{tri(2)}}, Selected, tri(2)},
		{"click selected while navigating", []Event{Click{tri(1)}, Toggle{}, Click{tri(1)}}, Idle, kernel.NoTriangle},
		{"background exits navigation", []Event{Click{tri(1)}, Toggle{}, ClickBackground{}}, Selected, tri(1)},
		{"background while selected", []Event{Click{tri(1)}, ClickBackground{}}, Selected, tri(1)},
		{"background while idle", []Event{ClickBackground{}}, Idle, kernel.NoTriangle},
		{"unknown triangle ignored", []Event{Click{tri(1)}, Click{42}}, Selected, tri(1)},
		{"toggle while idle", []Event{Toggle{}}, Idle, kernel.NoTriangle},
		{"toggle twice", []Event{Click{tri(4)}, Toggle{}, Toggle{}}, Selected, tri(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := run(Initial(), d, tt.events...)
			assert.Equal(t, tt.mode, s.Mode)
			assert.Equal(t, tt.sel, s.Selected)
		})
	}
}

func TestToggleOffClearsHover(t *testing.T) {
	_, d := octahedron(t)
	s := run(Initial(), d, Click{tri(0)}, Toggle{}, PointerOver{tri(5)})
	require.NotEmpty(t, s.Path)

	s = Reduce(s, Toggle{}, d)
	assert.Equal(t, Selected, s.Mode)
	assert.Equal(t, kernel.NoTriangle, s.Hovered)
	assert.Empty(t, s.Path)
}

func TestHover(t *testing.T) {
	_, d := octahedron(t)

	t.Run("ignored outside navigation", func(t *testing.T) {
		s := run(Initial(), d, Click{tri(0)}, PointerOver{tri(5)})
		assert.Equal(t, kernel.NoTriangle, s.Hovered)
		assert.Empty(t, s.Path)
		assert.Equal(t, tri(5), s.Pointer)
		assert.Equal(t, HoveredBase, ColorOf(s, tri(5)))
	})

	t.Run("hover selected has no path", func(t *testing.T) {
		s := run(Initial(), d, Click{tri(0)}, Toggle{}, PointerOver{tri(5)}, PointerOver{tri(0)})
		assert.Equal(t, tri(0), s.Hovered)
		assert.Empty(t, s.Path)
		assert.Equal(t, SelectedColor, ColorOf(s, tri(0)))
	})

	t.Run("adjacent hover", func(t *testing.T) {
		s := run(Initial(), d, Click{tri(0)}, Toggle{}, PointerOver{tri(1)})
		assert.Equal(t, []kernel.TriangleID{tri(0), tri(1)}, s.Path)
	})

	t.Run("pointer out clears preview", func(t *testing.T) {
		s := run(Initial(), d, Click{tri(0)}, Toggle{}, PointerOver{tri(5)}, PointerOut{})
		assert.Equal(t, Navigating, s.Mode)
		assert.Equal(t, kernel.NoTriangle, s.Hovered)
		assert.Equal(t, kernel.NoTriangle, s.Pointer)
		assert.Empty(t, s.Path)
	})

	t.Run("no hovered-base while navigating", func(t *testing.T) {
		s := run(Initial(), d, Click{tri(0)}, Toggle{}, PointerOver{tri(5)})
		assert.Equal(t, Default, ColorOf(s, tri(4)))
		assert.Equal(t, NavigationHover, ColorOf(s, tri(5)))
	})
}

func TestHoverUsesInjectedFinder(t *testing.T) {
	g, _ := octahedron(t)
	f := pathfind.NewFinder(g, 8)
	d := Deps{Graph: g, FindPath: f.Find}

	s := run(Initial(), d, Click{tri(0)}, Toggle{}, PointerOver{tri(5)}, PointerOut{}, PointerOver{tri(5)})
	assert.Len(t, s.Path, 4)
	assert.Equal(t, int64(1), f.Stats().Hits)
}

func TestDirectionalKeys(t *testing.T) {
	g, d := octahedron(t)
	ns := g.Neighbors(tri(0))
	require.Len(t, ns, 3)

	tests := []struct {
		dir  Direction
		want kernel.TriangleID
	}{
		{Up, ns[0]},
		{Down, ns[1]},
		{Left, ns[2]},
		{Right, ns[0]}, // previous selection unknown
	}
	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			s := run(Initial(), d, Click{tri(0)}, Key{tt.dir})
			assert.Equal(t, Selected, s.Mode)
			assert.Equal(t, tt.want, s.Selected)
			assert.Equal(t, tri(0), s.Previous)
		})
	}

	t.Run("ignored while navigating", func(t *testing.T) {
		s := run(Initial(), d, Click{tri(0)}, Toggle{}, Key{Up})
		assert.Equal(t, tri(0), s.Selected)
		assert.Equal(t, Navigating, s.Mode)
	})

	t.Run("ignored while idle", func(t *testing.T) {
		s := run(Initial(), d, Key{Up})
		assert.Equal(t, Initial(), s)
	})
}

func TestNeighborMapping(t *testing.T) {
	three := []kernel.TriangleID{10, 20, 30}
	two := []kernel.TriangleID{10, 20}
	one := []kernel.TriangleID{10}

	tests := []struct {
		name string
		ns   []kernel.TriangleID
		dir  Direction
		prev kernel.TriangleID
		want kernel.TriangleID
	}{
		{"up", three, Up, -1, 10},
		{"down", three, Down, -1, 20},
		{"down single", one, Down, -1, 10},
		{"left", three, Left, -1, 30},
		{"left two", two, Left, -1, 20},
		{"left single", one, Left, -1, 10},
		{"right after prev", three, Right, 20, 30},
		{"right wraps", three, Right, 30, 10},
		{"right unknown prev", three, Right, 99, 10},
		{"right two", two, Right, 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Neighbor(tt.ns, tt.dir, tt.prev))
		})
	}
}

func TestKeyWithoutNeighbors(t *testing.T) {
	d := Deps{Graph: mapGraph{1: nil}}
	s := run(Initial(), d, Click{1}, Key{Right})
	assert.Equal(t, kernel.TriangleID(1), s.Selected)
}

func TestRightStepsAroundPreviousNeighbor(t *testing.T) {
	d := Deps{Graph: mapGraph{
		1: {2, 3, 4},
		2: {5, 1, 6},
		3: {1}, 4: {1}, 5: {2}, 6: {2},
	}}
	// 1 -> up -> 2, previous = 1 at index 1 of neighbors(2), so right -> 6.
	s := run(Initial(), d, Click{1}, Key{Up}, Key{Right})
	assert.Equal(t, kernel.TriangleID(6), s.Selected)
	assert.Equal(t, kernel.TriangleID(2), s.Previous)
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestSingleSelection(t *testing.T) {
	g, d := octahedron(t)
	ids := g.IDs()
	rng := rand.New(rand.NewPCG(7, 11))

	s := Initial()
	for i := 0; i < 500; i++ {
		var e Event
		switch rng.IntN(6) {
		case 0, 1:
			e = Click{ids[rng.IntN(len(ids))]}
		case 2:
			e = ClickBackground{}
		case 3:
			e = Toggle{}
		case 4:
			e = Key{Direction(rng.IntN(4))}
		default:
			e = PointerOver{ids[rng.IntN(len(ids))]}
		}
		s = Reduce(s, e, d)

		selected := 0
		for _, id := range ids {
			if ColorOf(s, id) == SelectedColor {
				selected++
			}
		}
		require.LessOrEqual(t, selected, 1, "step %d: %s", i, s)
		require.Equal(t, s.Mode == Idle, !s.HasSelection(), "step %d: %s", i, s)
		if s.Mode != Navigating {
			require.Empty(t, s.Path, "step %d: %s", i, s)
		}
	}
}

func TestReduceDoesNotAliasPath(t *testing.T) {
	_, d := octahedron(t)
	a := run(Initial(), d, Click{tri(0)}, Toggle{}, PointerOver{tri(5)})
	path := append([]kernel.TriangleID(nil), a.Path...)

	_ = Reduce(a, PointerOver{tri(6)}, d)
	assert.Equal(t, path, a.Path)
}

// ---------------------------------------------------------------------------
// Reconcile
// ---------------------------------------------------------------------------

func TestReconcile(t *testing.T) {
	old := Deps{Graph: mapGraph{1: {2}, 2: {1, 3}, 3: {2}}}

	t.Run("stale selection resets", func(t *testing.T) {
		s := run(Initial(), old, Click{1}, Toggle{}, PointerOver{3})
		s = Reconcile(s, Deps{Graph: mapGraph{2: {3}, 3: {2}}})
		assert.Equal(t, Idle, s.Mode)
		assert.False(t, s.HasSelection())
		assert.Equal(t, kernel.NoTriangle, s.Hovered)
		assert.Empty(t, s.Path)
		assert.Equal(t, kernel.TriangleID(3), s.Pointer)
	})

	t.Run("stale hover clears", func(t *testing.T) {
		s := run(Initial(), old, Click{1}, Toggle{}, PointerOver{3})
		s = Reconcile(s, Deps{Graph: mapGraph{1: {2}, 2: {1}}})
		assert.Equal(t, Navigating, s.Mode)
		assert.Equal(t, kernel.TriangleID(1), s.Selected)
		assert.Equal(t, kernel.NoTriangle, s.Hovered)
		assert.Equal(t, kernel.NoTriangle, s.Pointer)
		assert.Empty(t, s.Path)
	})

	t.Run("path recomputed", func(t *testing.T) {
		s := run(Initial(), old, Click{1}, Toggle{}, PointerOver{3})
		require.Equal(t, []kernel.TriangleID{1, 2, 3}, s.Path)

		s = Reconcile(s, Deps{Graph: mapGraph{1: {3}, 2: {}, 3: {1}}})
		assert.Equal(t, []kernel.TriangleID{1, 3}, s.Path)
	})

	t.Run("disconnected gives empty path", func(t *testing.T) {
		s := run(Initial(), old, Click{1}, Toggle{}, PointerOver{3})
		s = Reconcile(s, Deps{Graph: mapGraph{1: {}, 3: {}}})
		assert.Equal(t, kernel.TriangleID(3), s.Hovered)
		assert.Empty(t, s.Path)
	})

	t.Run("idle untouched", func(t *testing.T) {
		s := Reconcile(Initial(), old)
		assert.Equal(t, Initial(), s)
	})
}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{
		"up": Up, "Down": Down, "ArrowLeft": Left, "RIGHT": Right,
	} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestColorNames(t *testing.T) {
	assert.Equal(t, "navigation-hover", NavigationHover.String())
	assert.Equal(t, "#ff6b6b", SelectedColor.Hex())
	assert.Equal(t, "#45b7d1", Color(99).Hex())
	b, err := HoveredBase.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "hovered-base", string(b))
}
