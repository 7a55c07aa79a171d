// Package engine runs scenario scripts against a sphere scene. Scripts are
// zygomys Lisp evaluated in a sandbox; builtins click, hover, press keys,
// change depths and move the viewpoint, and every state change is recorded
// in a Transcript.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/octasphere/pkg/interact"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Step is one recorded state change.
type Step struct {
	Op    string
	Args  string
	State interact.State
}

func (s Step) String() string {
	if s.Args == "" {
		return fmt.Sprintf("%s -> %s", s.Op, s.State)
	}
	return fmt.Sprintf("%s %s -> %s", s.Op, s.Args, s.State)
}

// Transcript is the outcome of one scenario run.
type Transcript struct {
	ID         string
	Steps      []Step
	Final      interact.State
	Depths     [kernel.RegionCount]int
	Triangles  int
	Generation uint64

	// Scene is the scene the script ran against, for further inspection.
	Scene *scene.Scene
}

func (t *Transcript) record(op, args string, st interact.State) {
	t.Steps = append(t.Steps, Step{Op: op, Args: args, State: st})
}

// Engine runs scenarios. It is safe for concurrent use; each call to Run
// evaluates in a fresh sandbox against a fresh scene.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	opts       scene.Options
	timeout    time.Duration
}

// NewEngine returns an engine building scenes from opts.
func NewEngine(opts scene.Options) *Engine {
	return &Engine{opts: opts, timeout: EvalTimeout}
}

// SetTimeout overrides the evaluation time limit.
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d > 0 {
		e.timeout = d
	}
}

// Run evaluates source.
//
// Return semantics:
//   - On success: returns transcript + nil errors + nil error
//   - On parse/eval failure: returns nil transcript + eval errors + nil error
//   - On fatal failure (timeout, panic, scene setup): returns nil + nil + error
func (e *Engine) Run(source string) (*Transcript, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout := e.timeout
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		tr, evalErrs, err := e.run(source)
		ch <- evalResult{transcript: tr, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, timeout, &e.mu, &e.generation)
}

// run performs the zygomys evaluation in a fresh sandbox.
func (e *Engine) run(source string) (*Transcript, []EvalError, error) {
	ctx := context.Background()
	sc, err := scene.New(ctx, e.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("scene setup: %w", err)
	}
	tr := &Transcript{ID: uuid.NewString(), Scene: sc}

	// Empty source is a valid scenario with no steps.
	if strings.TrimSpace(source) != "" {
		// Sandbox mode prevents scripts from touching the filesystem.
		env := zygo.NewZlispSandbox()
		defer env.Stop()

		registerBuiltins(ctx, env, sc, tr)

		if err := env.LoadString(preprocessSource(source)); err != nil {
			return nil, parseZygomysError(err), nil
		}
		if _, err := env.Run(); err != nil {
			return nil, parseZygomysError(err), nil
		}
	}

	tr.Final = sc.State()
	tr.Depths = sc.Depths()
	tr.Triangles = len(sc.Triangles())
	tr.Generation = sc.Generation()
	return tr, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting a line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
