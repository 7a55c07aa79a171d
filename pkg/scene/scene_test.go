package scene

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/chazu/octasphere/pkg/graph"
	"github.com/chazu/octasphere/pkg/interact"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/pathfind"
	"github.com/chazu/octasphere/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScene(t *testing.T, mutate ...func(*Options)) *Scene {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = quiet()
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(context.Background(), opts)
	require.NoError(t, err)
	return s
}

func uniform(d int) [kernel.RegionCount]int {
	var out [kernel.RegionCount]int
	for i := range out {
		out[i] = d
	}
	return out
}

func TestNew(t *testing.T) {
	s := newScene(t)
	assert.Equal(t, uniform(1), s.Depths())
	assert.Len(t, s.Triangles(), 8*4)
	assert.Equal(t, 8*4, s.Graph().Len())
	assert.Equal(t, uint64(1), s.Generation())
	assert.Equal(t, interact.Idle, s.State().Mode)
	assert.Equal(t, 2.0, s.Radius())
	assert.Equal(t, 1, s.Region(3).Depth)
}

func TestNewRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Radius = 0
	_, err := New(context.Background(), opts)
	assert.Error(t, err)
}

func TestTick(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)

	changed, err := s.Tick(ctx, v3.Vec{X: 5, Y: 5, Z: 5})
	require.NoError(t, err)
	assert.Len(t, changed, 8)
	assert.Equal(t, [kernel.RegionCount]int{4, 2, 2, 2, 2, 2, 2, 2}, s.Depths())
	// Four boundary triangles of each of region 0's three neighbors are
	// stitched into fans of six.
	assert.Len(t, s.Triangles(), 256+7*16+3*4*5)
	assert.Equal(t, 3*s.Graph().Len()/2, s.Graph().EdgeCount())
	assert.Empty(t, s.Graph().Warnings())
	assert.Equal(t, uint64(2), s.Generation())

	changed, err = s.Tick(ctx, v3.Vec{X: 5, Y: 5, Z: 5})
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, uint64(2), s.Generation())
}

func TestMixedDepthsStayConnected(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)

	_, err := s.Tick(ctx, v3.Vec{X: 5, Y: 5, Z: 5})
	require.NoError(t, err)
	require.False(t, tessellate.Uniform(s.Depths()))

	from := s.Region(0).Triangles[0].ID
	for r := 1; r < kernel.RegionCount; r++ {
		to := s.Region(r).Triangles[0].ID
		path, err := pathfind.Find(s.Graph(), from, to)
		require.NoError(t, err)
		assert.NotEmpty(t, path, "region %d unreachable from region 0", r)
	}

	h := s.Graph().DegreeHistogram()
	assert.Equal(t, s.Graph().Len(), h[3], "every triangle has three neighbors")
}

func TestNavigationAcrossDepthSeam(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)
	require.NoError(t, s.SetDepths(ctx, [kernel.RegionCount]int{4, 2, 2, 2, 2, 2, 2, 2}))

	a := tessellate.EncodeID(0, 4, 0)
	b := tessellate.EncodeID(7, 2, 5)
	s.Dispatch(ctx, interact.Click{ID: a})
	s.Dispatch(ctx, interact.Toggle{})
	st := s.Dispatch(ctx, interact.PointerOver{ID: b})

	require.NotEmpty(t, st.Path)
	assert.Equal(t, a, st.Path[0])
	assert.Equal(t, b, st.Path[len(st.Path)-1])
	assert.Len(t, s.PathPoints(), len(st.Path))
}

func TestStitchedRegionsTileTheirSeams(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)
	require.NoError(t, s.SetDepths(ctx, [kernel.RegionCount]int{0, 0, 0, 0, 0, 0, 0, 1}))

	// Region 7 is the finer side and keeps its plain subdivision.
	assert.Len(t, s.Region(7).Triangles, 4)
	for _, r := range []int{0, 4, 6} {
		tris := s.Region(r).Triangles
		require.Len(t, tris, 4, "region %d", r)
		assert.Equal(t, tessellate.EncodeID(r, 0, 0), tris[0].ID)
		for _, tr := range tris[1:] {
			assert.True(t, tessellate.IsStitched(tr.ID))
		}
	}
	assert.Len(t, s.Region(1).Triangles, 1)
	assert.Len(t, s.Triangles(), 20)
}

func TestLiteralQuantizerIsNormalized(t *testing.T) {
	s := newScene(t, func(o *Options) {
		o.Quantizer = graph.Quantizer{Decimals: 4}
		o.VerifySurface = true
	})
	assert.InDelta(t, 1e-4, s.opts.Quantizer.Epsilon(), 1e-12)
	assert.Equal(t, 4, s.Graph().Quantizer().Decimals)

	off := []kernel.Triangle{{ID: 1, Face: kernel.Face{{X: 3}, {Y: 2}, {Z: 2}}}}
	assert.Error(t, s.Surface().Check(off, s.opts.Quantizer.Epsilon()))

	require.NoError(t, s.SetDepths(context.Background(), uniform(2)))
	assert.Len(t, s.Triangles(), 8*16)
}

func TestRebuildResetsStaleSelection(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	s := newScene(t, func(o *Options) {
		o.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	})

	x := tessellate.EncodeID(0, 1, 2)
	s.Dispatch(ctx, interact.Click{ID: x})
	require.Equal(t, x, s.State().Selected)

	require.NoError(t, s.SetDepth(ctx, 0, 2))
	assert.False(t, s.Graph().Has(x))
	assert.Equal(t, interact.Idle, s.State().Mode)
	assert.False(t, s.State().HasSelection())
	assert.Contains(t, logs.String(), "selection dropped by rebuild")
}

func TestSelectionSurvivesUnrelatedRebuild(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)

	x := tessellate.EncodeID(0, 1, 2)
	s.Dispatch(ctx, interact.Click{ID: x})
	require.NoError(t, s.SetDepth(ctx, 5, 2))

	assert.Equal(t, interact.Selected, s.State().Mode)
	assert.Equal(t, x, s.State().Selected)
}

func TestScenarioOnOctahedron(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)
	require.NoError(t, s.SetDepths(ctx, uniform(0)))

	tri := func(i int) kernel.TriangleID { return tessellate.EncodeID(i, 0, 0) }
	s.Dispatch(ctx, interact.Click{ID: tri(3)})
	s.Dispatch(ctx, interact.Toggle{})
	st := s.Dispatch(ctx, interact.PointerOver{ID: tri(7)})

	require.Len(t, st.Path, 3)
	points := s.PathPoints()
	require.Len(t, points, 3)
	for _, p := range points {
		assert.InDelta(t, 2.02, p.Length(), 1e-9)
	}

	colors := s.Colors()
	assert.Len(t, colors, 8)
	assert.Equal(t, interact.SelectedColor, colors[tri(3)])
	assert.Equal(t, interact.NavigationHover, colors[tri(7)])
	assert.Equal(t, interact.Default, colors[tri(0)])
	assert.Equal(t, int64(1), s.PathStats().Misses)

	st = s.Dispatch(ctx, interact.Click{ID: tri(3)})
	assert.Equal(t, interact.Idle, st.Mode)
	assert.Nil(t, s.PathPoints())
}

func TestPathRecomputedAfterRebuild(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)

	a, b := tessellate.EncodeID(0, 1, 0), tessellate.EncodeID(0, 1, 3)
	s.Dispatch(ctx, interact.Click{ID: a})
	s.Dispatch(ctx, interact.Toggle{})
	s.Dispatch(ctx, interact.PointerOver{ID: b})
	require.NotEmpty(t, s.State().Path)

	// Rebuilding another region keeps both endpoints; the preview is
	// recomputed against the new graph.
	require.NoError(t, s.SetDepth(ctx, 6, 2))
	assert.Equal(t, interact.Navigating, s.State().Mode)
	assert.Equal(t, b, s.State().Hovered)
	assert.NotEmpty(t, s.State().Path)
	for _, id := range s.State().Path {
		assert.True(t, s.Graph().Has(id))
	}
}

func TestSetDepthRejects(t *testing.T) {
	ctx := context.Background()
	s := newScene(t)

	assert.ErrorIs(t, s.SetDepth(ctx, 9, 1), tessellate.ErrInvalidRegion)
	assert.ErrorIs(t, s.SetDepth(ctx, 0, -1), kernel.ErrNegativeLevel)
	assert.ErrorIs(t, s.SetDepth(ctx, 0, 7), kernel.ErrLevelTooDeep)
	assert.Equal(t, uint64(1), s.Generation())
	assert.Equal(t, uniform(1), s.Depths())
}

func TestIntegrityFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	// A 0.1 grid cannot tell depth-6 vertices apart.
	s := newScene(t, func(o *Options) {
		o.Quantizer = graph.NewQuantizer(1)
	})
	before := s.Triangles()
	x := before[5].ID
	s.Dispatch(ctx, interact.Click{ID: x})

	err := s.SetDepths(ctx, uniform(6))
	require.ErrorIs(t, err, graph.ErrIntegrity)

	assert.Equal(t, uniform(1), s.Depths())
	assert.Equal(t, uint64(1), s.Generation())
	assert.Len(t, s.Triangles(), len(before))
	assert.Equal(t, x, s.State().Selected)
}

func TestTickFailureRestoresController(t *testing.T) {
	ctx := context.Background()
	s := newScene(t, func(o *Options) {
		o.Quantizer = graph.NewQuantizer(1)
	})

	_, err := s.Tick(ctx, v3.Vec{X: 3, Y: 3, Z: 3})
	require.ErrorIs(t, err, graph.ErrIntegrity)

	// The controller must report the same changes again next frame.
	_, err = s.Tick(ctx, v3.Vec{X: 3, Y: 3, Z: 3})
	require.ErrorIs(t, err, graph.ErrIntegrity)
	assert.Equal(t, uniform(1), s.Depths())
}

func TestVerifySurface(t *testing.T) {
	s := newScene(t, func(o *Options) { o.VerifySurface = true })
	require.NoError(t, s.SetDepths(context.Background(), uniform(3)))
	assert.Len(t, s.Triangles(), 8*64)
}

func TestMesh(t *testing.T) {
	s := newScene(t)
	m := s.Mesh()
	assert.Equal(t, 32, m.TriangleCount())
	assert.Equal(t, 96, m.VertexCount())
	assert.Len(t, m.Triangles, 32)
}
