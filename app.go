package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"slices"
	"sync"

	"github.com/chazu/octasphere/pkg/config"
	"github.com/chazu/octasphere/pkg/engine"
	"github.com/chazu/octasphere/pkg/interact"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/pick"
	"github.com/chazu/octasphere/pkg/scene"
	"github.com/chazu/octasphere/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// frameEvent is emitted to the frontend whenever the scene changes.
const frameEvent = "scene:frame"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx context.Context

	mu     sync.Mutex
	scene  *scene.Scene
	engine *engine.Engine
	picker *pick.Picker
	pickAt uint64 // scene generation the picker was built for

	viewpoint v3.Vec
}

// FrameData is the JSON-serializable render state sent to the frontend.
type FrameData struct {
	Vertices   []float32       `json:"vertices"`
	Normals    []float32       `json:"normals"`
	Indices    []uint32        `json:"indices"`
	Triangles  []int64         `json:"triangles"`
	Colors     []string        `json:"colors"` // hex, one per triangle
	Path       []float32       `json:"path"`   // polyline, x,y,z per point
	Mode       string          `json:"mode"`
	Selected   int64           `json:"selected"`
	Depths     []int           `json:"depths"`
	Generation uint64          `json:"generation"`
	Errors     []EvalErrorData `json:"errors"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// ScenarioResult is returned by RunScenario.
type ScenarioResult struct {
	ID     string          `json:"id"`
	Steps  []string        `json:"steps"`
	Final  string          `json:"final"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp builds the sphere described by cfg.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	opts := scene.OptionsFromConfig(cfg, logger)
	sc, err := scene.New(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	eng := engine.NewEngine(opts)
	eng.SetTimeout(cfg.Engine.Timeout)
	vp := cfg.LOD.Viewpoint
	return &App{
		scene:     sc,
		engine:    eng,
		viewpoint: v3.Vec{X: vp[0], Y: vp[1], Z: vp[2]},
	}, nil
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later, and the sphere is refined
// for the configured starting viewpoint.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.View(a.viewpoint.X, a.viewpoint.Y, a.viewpoint.Z)
}

// Frame returns the current render state.
func (a *App) Frame() FrameData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frame()
}

// View moves the viewpoint, rebuilding regions whose LOD depth changed.
func (a *App) View(x, y, z float64) FrameData {
	a.mu.Lock()
	defer a.mu.Unlock()

	changed, err := a.scene.Tick(a.context(), v3.Vec{X: x, Y: y, Z: z})
	if err != nil {
		log.Printf("View error: %v", err)
		return a.failed(err)
	}
	if len(changed) == 0 {
		return a.frame()
	}
	return a.emit()
}

// SetDepth pins one region to depth d.
func (a *App) SetDepth(region, d int) FrameData {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.scene.SetDepth(a.context(), region, d); err != nil {
		log.Printf("SetDepth error: %v", err)
		return a.failed(err)
	}
	return a.emit()
}

// Click selects or deselects a triangle.
func (a *App) Click(id int64) FrameData {
	return a.dispatch(interact.Click{ID: kernel.TriangleID(id)})
}

// ClickBackground handles a click that hit no triangle.
func (a *App) ClickBackground() FrameData {
	return a.dispatch(interact.ClickBackground{})
}

// Toggle switches between selection and navigation.
func (a *App) Toggle() FrameData {
	return a.dispatch(interact.Toggle{})
}

// Hover reports the pointer entering a triangle.
func (a *App) Hover(id int64) FrameData {
	return a.dispatch(interact.PointerOver{ID: kernel.TriangleID(id)})
}

// Leave reports the pointer leaving the sphere.
func (a *App) Leave() FrameData {
	return a.dispatch(interact.PointerOut{})
}

// Key steps the selection in a direction ("up", "ArrowLeft", ...).
func (a *App) Key(name string) FrameData {
	dir, err := interact.ParseDirection(name)
	if err != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.failed(err)
	}
	return a.dispatch(interact.Key{Dir: dir})
}

// Pick casts a ray from origin along dir and returns the first triangle
// hit, or -1.
func (a *App) Pick(ox, oy, oz, dx, dy, dz float64) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.picker == nil || a.pickAt != a.scene.Generation() {
		var regions []*tessellate.Region
		for i := 0; i < kernel.RegionCount; i++ {
			regions = append(regions, a.scene.Region(i))
		}
		a.picker = pick.New(a.scene.Surface(), regions)
		a.pickAt = a.scene.Generation()
	}
	id, ok := a.picker.Pick(pick.Ray{
		Origin: v3.Vec{X: ox, Y: oy, Z: oz},
		Dir:    v3.Vec{X: dx, Y: dy, Z: dz},
	})
	if !ok {
		return int64(kernel.NoTriangle)
	}
	return int64(id)
}

// RunScenario evaluates a scenario script against a fresh scene. The live
// scene is not affected.
func (a *App) RunScenario(source string) ScenarioResult {
	result := ScenarioResult{
		Steps:  []string{},
		Errors: []EvalErrorData{},
	}

	tr, evalErrs, err := a.engine.Run(source)
	if err != nil {
		log.Printf("RunScenario fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	result.ID = tr.ID
	for _, s := range tr.Steps {
		result.Steps = append(result.Steps, s.String())
	}
	result.Final = tr.Final.String()
	return result
}

// ---------------------------------------------------------------------------
// Internals. Callers hold a.mu.
// ---------------------------------------------------------------------------

func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

func (a *App) dispatch(e interact.Event) FrameData {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := a.scene.State()
	after := a.scene.Dispatch(a.context(), e)
	if sameState(before, after) {
		return a.frame()
	}
	return a.emit()
}

// emit pushes the current frame to the frontend and returns it.
func (a *App) emit() FrameData {
	f := a.frame()
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, frameEvent, f)
	}
	return f
}

func (a *App) failed(err error) FrameData {
	f := a.frame()
	f.Errors = append(f.Errors, EvalErrorData{Message: err.Error()})
	return f
}

func (a *App) frame() FrameData {
	m := a.scene.Mesh()
	st := a.scene.State()
	colors := a.scene.Colors()

	f := FrameData{
		Vertices:   m.Vertices,
		Normals:    m.Normals,
		Indices:    m.Indices,
		Triangles:  make([]int64, len(m.Triangles)),
		Colors:     make([]string, len(m.Triangles)),
		Path:       []float32{},
		Mode:       st.Mode.String(),
		Selected:   int64(st.Selected),
		Generation: a.scene.Generation(),
		Errors:     []EvalErrorData{},
	}
	for i, id := range m.Triangles {
		f.Triangles[i] = int64(id)
		f.Colors[i] = colors[id].Hex()
	}
	for _, p := range a.scene.PathPoints() {
		f.Path = append(f.Path, float32(p.X), float32(p.Y), float32(p.Z))
	}
	depths := a.scene.Depths()
	f.Depths = depths[:]
	return f
}

func sameState(a, b interact.State) bool {
	return a.Mode == b.Mode && a.Selected == b.Selected && a.Previous == b.Previous &&
		a.Hovered == b.Hovered && a.Pointer == b.Pointer && slices.Equal(a.Path, b.Path)
}
