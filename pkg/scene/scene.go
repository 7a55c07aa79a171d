// Package scene wires the sphere pipeline together: LOD selection, region
// rebuilds, the adjacency graph, path finding and the interaction state.
//
// Every rebuild runs to completion before the next event is consumed. The
// triangle list, graph and path finder are replaced wholesale, and the
// interaction state is reconciled against the new graph in the same call,
// so no stale identifier is ever observed after a rebuild returns.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/octasphere/pkg/config"
	"github.com/chazu/octasphere/pkg/graph"
	"github.com/chazu/octasphere/pkg/interact"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/kernel/sdfx"
	"github.com/chazu/octasphere/pkg/lod"
	"github.com/chazu/octasphere/pkg/pathfind"
	"github.com/chazu/octasphere/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.opentelemetry.io/otel/codes"
)

// Options configures a Scene.
type Options struct {
	Radius       float64
	Quantizer    graph.Quantizer
	PathLift     float64
	Policy       lod.Policy
	InitialDepth int
	MaxDepth     int
	CacheSize    int

	// VerifySurface checks every rebuilt vertex against the sphere SDF.
	VerifySurface bool

	Logger *slog.Logger
}

// OptionsFromConfig maps a loaded configuration onto scene options.
func OptionsFromConfig(cfg config.Config, logger *slog.Logger) Options {
	return Options{
		Radius:       cfg.Geometry.Radius,
		Quantizer:    cfg.Quantizer(),
		PathLift:     cfg.Geometry.PathLift,
		Policy:       cfg.Policy(),
		InitialDepth: cfg.LOD.InitialDepth,
		MaxDepth:     cfg.LOD.MaxDepth,
		CacheSize:    cfg.Path.CacheSize,
		Logger:       logger,
	}
}

// DefaultOptions returns options for the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default(), nil)
}

// Scene owns all derived sphere state. It is not safe for concurrent use.
type Scene struct {
	opts    Options
	log     *slog.Logger
	lod     *lod.Controller
	surface *sdfx.Surface

	regions    [kernel.RegionCount]*tessellate.Region // as subdivided
	stitched   []*tessellate.Region                   // seams conformed
	triangles  []kernel.Triangle
	graph      *graph.Graph
	finder     *pathfind.Finder
	state      interact.State
	generation uint64
}

// New builds the sphere with every region at opts.InitialDepth.
func New(ctx context.Context, opts Options) (*Scene, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	// Rebuild the quantizer so a literal Quantizer{Decimals: n} gets its grid.
	decimals := opts.Quantizer.Decimals
	if decimals <= 0 {
		decimals = graph.DefaultSnapDecimals
	}
	opts.Quantizer = graph.NewQuantizer(decimals)
	surface, err := sdfx.New(opts.Radius)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	ctrl, err := lod.NewController(opts.Policy, opts.Radius, opts.InitialDepth, opts.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	s := &Scene{
		opts:    opts,
		log:     opts.Logger,
		lod:     ctrl,
		surface: surface,
		state:   interact.Initial(),
	}
	if err := s.rebuild(ctx, ctrl.Depths(), allRegions()); err != nil {
		return nil, err
	}
	return s, nil
}

// FromConfig is New with options derived from cfg.
func FromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Scene, error) {
	return New(ctx, OptionsFromConfig(cfg, logger))
}

func allRegions() []int {
	out := make([]int, kernel.RegionCount)
	for i := range out {
		out[i] = i
	}
	return out
}

// ---------------------------------------------------------------------------
// Rebuilds
// ---------------------------------------------------------------------------

// Tick runs the LOD controller for viewpoint and rebuilds every region
// whose depth changed. It returns the changed regions. On error the
// previous consistent snapshot is kept.
func (s *Scene) Tick(ctx context.Context, viewpoint v3.Vec) ([]int, error) {
	before := s.lod.Depths()
	depths, changed := s.lod.Update(viewpoint)
	if len(changed) == 0 {
		return nil, nil
	}
	if err := s.rebuild(ctx, depths, changed); err != nil {
		s.lod.Override(before)
		return nil, err
	}
	return changed, nil
}

// SetDepth rebuilds one region at depth d.
func (s *Scene) SetDepth(ctx context.Context, region, d int) error {
	if region < 0 || region >= kernel.RegionCount {
		return fmt.Errorf("scene: %w: %d", tessellate.ErrInvalidRegion, region)
	}
	depths := s.Depths()
	depths[region] = d
	return s.SetDepths(ctx, depths)
}

// SetDepths rebuilds every region whose depth differs from depths.
func (s *Scene) SetDepths(ctx context.Context, depths [kernel.RegionCount]int) error {
	var changed []int
	for i, d := range depths {
		if err := kernel.CheckLevel(d); err != nil {
			return fmt.Errorf("scene: region %d: %w", i, err)
		}
		if d > s.lod.MaxDepth() {
			return fmt.Errorf("scene: region %d: %w: %d > max depth %d", i, kernel.ErrLevelTooDeep, d, s.lod.MaxDepth())
		}
		if d != s.regions[i].Depth {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	if err := s.rebuild(ctx, depths, changed); err != nil {
		return err
	}
	s.lod.Override(depths)
	return nil
}

// rebuild replaces the changed regions, then the triangle list, graph and
// finder, then reconciles the interaction state. Nothing is swapped in
// unless every step succeeds.
func (s *Scene) rebuild(ctx context.Context, depths [kernel.RegionCount]int, changed []int) (err error) {
	ctx, span := startRebuildSpan(ctx, changed)
	defer span.End()
	start := time.Now()
	triangles, violations := 0, 0
	defer func() {
		recordRebuild(ctx, time.Since(start), triangles, violations, err == nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	regions := s.regions
	for _, i := range changed {
		r, err := tessellate.Build(i, depths[i], s.opts.Radius)
		if err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		regions[i] = r
		s.log.Debug("region rebuilt", "region", i, "depth", depths[i], "triangles", len(r.Triangles))
	}

	stitched, err := tessellate.Conform(regions[:], s.opts.Radius, s.opts.Quantizer.Epsilon())
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	tris := tessellate.Union(stitched)
	if s.opts.VerifySurface {
		if err := s.surface.Check(tris, s.opts.Quantizer.Epsilon()); err != nil {
			s.log.Error("sphere surface check failed", "error", err)
			return fmt.Errorf("scene: %w", err)
		}
	}

	g, err := graph.Build(tris, graph.Options{Quantizer: s.opts.Quantizer})
	if err != nil {
		var ie *graph.IntegrityError
		if errors.As(err, &ie) {
			violations = len(ie.Violations)
		}
		s.log.Error("adjacency graph rejected", "error", err, "violations", violations, "generation", s.generation)
		return fmt.Errorf("scene: rebuild regions %v: %w", changed, err)
	}
	raw := 0
	for _, r := range regions {
		raw += len(r.Triangles)
	}
	if raw < len(tris) {
		s.log.Debug("region seams stitched", "added", len(tris)-raw)
	}

	s.regions = regions
	s.stitched = stitched
	s.triangles = tris
	s.graph = g
	s.finder = pathfind.NewFinder(g, s.opts.CacheSize)
	s.generation++
	triangles = len(tris)

	prev := s.state
	s.state = interact.Reconcile(s.state, s.deps(ctx))
	if prev.HasSelection() && !s.state.HasSelection() {
		s.log.Info("selection dropped by rebuild", "triangle", prev.Selected, "generation", s.generation)
	}

	s.log.Info("scene rebuilt",
		"regions", changed,
		"triangles", len(tris),
		"links", g.EdgeCount(),
		"generation", s.generation,
	)
	return nil
}

// deps exposes the current graph and finder to the state machine.
func (s *Scene) deps(ctx context.Context) interact.Deps {
	return interact.Deps{
		Graph: s.graph,
		FindPath: func(a, b kernel.TriangleID) ([]kernel.TriangleID, error) {
			p, err := s.finder.Find(a, b)
			recordPathQuery(ctx, len(p) > 0)
			return p, err
		},
	}
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// Dispatch applies an input event and returns the new state.
func (s *Scene) Dispatch(ctx context.Context, e interact.Event) interact.State {
	prev := s.state
	s.state = interact.Reduce(s.state, e, s.deps(ctx))
	if prev.Mode != s.state.Mode || prev.Selected != s.state.Selected {
		s.log.Debug("interaction",
			"event", fmt.Sprintf("%T", e),
			"mode", s.state.Mode.String(),
			"selected", s.state.Selected,
		)
	}
	return s.state
}

// ---------------------------------------------------------------------------
// Read API
// ---------------------------------------------------------------------------

// State returns the current interaction state.
func (s *Scene) State() interact.State {
	return s.state
}

// Graph returns the current adjacency graph.
func (s *Scene) Graph() *graph.Graph {
	return s.graph
}

// Depths returns the built depth of every region.
func (s *Scene) Depths() [kernel.RegionCount]int {
	var out [kernel.RegionCount]int
	for i, r := range s.regions {
		out[i] = r.Depth
	}
	return out
}

// Region returns region i as currently displayed, with its seams
// conformed to finer neighbors.
func (s *Scene) Region(i int) *tessellate.Region {
	return s.stitched[i]
}

// Generation counts successful rebuilds.
func (s *Scene) Generation() uint64 {
	return s.generation
}

// Radius returns the sphere radius.
func (s *Scene) Radius() float64 {
	return s.opts.Radius
}

// Surface returns the sphere SDF.
func (s *Scene) Surface() *sdfx.Surface {
	return s.surface
}

// Triangles returns the live triangle list. The slice is shared and must
// not be modified; it is replaced, never mutated, on rebuild.
func (s *Scene) Triangles() []kernel.Triangle {
	return s.triangles
}

// Colors returns the display color of every live triangle.
func (s *Scene) Colors() map[kernel.TriangleID]interact.Color {
	out := make(map[kernel.TriangleID]interact.Color, len(s.triangles))
	for _, t := range s.triangles {
		out[t.ID] = interact.ColorOf(s.state, t.ID)
	}
	return out
}

// Mesh flattens the live triangles into render buffers.
func (s *Scene) Mesh() *kernel.Mesh {
	return kernel.NewMesh(s.triangles)
}

// PathPoints returns the centers of the path preview triangles lifted to
// radius R + PathLift, or nil when there is no preview.
func (s *Scene) PathPoints() []v3.Vec {
	if !s.state.HasPath() {
		return nil
	}
	r := s.opts.Radius + s.opts.PathLift
	out := make([]v3.Vec, 0, len(s.state.Path))
	for _, id := range s.state.Path {
		t, ok := s.graph.Triangle(id)
		if !ok {
			continue
		}
		out = append(out, kernel.Project(kernel.Centroid(t.Face), r))
	}
	return out
}

// PathStats returns the finder's cache counters for the current graph.
func (s *Scene) PathStats() pathfind.Stats {
	return s.finder.Stats()
}
