package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/octasphere/pkg/interact"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/scene"
	"github.com/chazu/octasphere/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scenario source before passing it to zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//  2. Kebab-case to underscore: click-background -> click_background
//     zygomys reads hyphens inside identifiers as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve :=.
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen between identifier characters is kebab-case.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW returns the keyword name if s is a preprocessed keyword.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds a parsed mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a SexpInt or SexpFloat.
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer. Floats are accepted when integral.
func toInt(s zygo.Sexp) (int64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return v.Val, nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int64(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// sexpListToSlice converts a list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func idList(ids []kernel.TriangleID) zygo.Sexp {
	items := make([]zygo.Sexp, len(ids))
	for i, id := range ids {
		items[i] = &zygo.SexpInt{Val: int64(id)}
	}
	return zygo.MakeList(items)
}

func idOrNull(id kernel.TriangleID) zygo.Sexp {
	if id == kernel.NoTriangle {
		return zygo.SexpNull
	}
	return &zygo.SexpInt{Val: int64(id)}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scenario builtins. Every builtin drives or
// inspects sc, and every state change is appended to tr.
//
// Source must be preprocessed with preprocessSource() so that :keyword
// tokens arrive as recognizable string literals.
func registerBuiltins(ctx context.Context, env *zygo.Zlisp, sc *scene.Scene, tr *Transcript) {

	dispatch := func(op, args string, e interact.Event) zygo.Sexp {
		st := sc.Dispatch(ctx, e)
		tr.record(op, args, st)
		return &zygo.SexpStr{S: st.Mode.String()}
	}

	triangleArg := func(op string, args []zygo.Sexp) (kernel.TriangleID, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s requires a triangle id, got %d arguments", op, len(args))
		}
		id, err := toInt(args[0])
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		return kernel.TriangleID(id), nil
	}

	// -----------------------------------------------------------------------
	// (tri region index) -> id of triangle index in region at its depth
	// -----------------------------------------------------------------------
	env.AddFunction("tri", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("tri requires a region and an index")
		}
		region, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tri: region: %w", err)
		}
		index, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("tri: index: %w", err)
		}
		if region < 0 || region >= kernel.RegionCount {
			return zygo.SexpNull, fmt.Errorf("tri: %w: %d", tessellate.ErrInvalidRegion, region)
		}
		depth := sc.Depths()[region]
		if index < 0 || index >= int64(kernel.Count(depth)) {
			return zygo.SexpNull, fmt.Errorf("tri: index %d out of range for depth %d", index, depth)
		}
		return &zygo.SexpInt{Val: int64(tessellate.EncodeID(int(region), depth, int(index)))}, nil
	})

	// -----------------------------------------------------------------------
	// Interaction events
	// -----------------------------------------------------------------------
	env.AddFunction("click", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, err := triangleArg("click", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return dispatch("click", fmt.Sprint(id), interact.Click{ID: id}), nil
	})

	env.AddFunction("click_background", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return dispatch("click-background", "", interact.ClickBackground{}), nil
	})

	env.AddFunction("toggle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return dispatch("toggle", "", interact.Toggle{}), nil
	})

	// (key :up) / (key "left")
	env.AddFunction("key", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("key requires a direction (:up, :down, :left, :right)")
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("key: %w", err)
		}
		dir, err := interact.ParseDirection(s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("key: %w", err)
		}
		return dispatch("key", dir.String(), interact.Key{Dir: dir}), nil
	})

	env.AddFunction("hover", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, err := triangleArg("hover", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return dispatch("hover", fmt.Sprint(id), interact.PointerOver{ID: id}), nil
	})

	env.AddFunction("leave", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return dispatch("leave", "", interact.PointerOut{}), nil
	})

	// -----------------------------------------------------------------------
	// Geometry
	// -----------------------------------------------------------------------

	// (depth region d)
	env.AddFunction("depth", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("depth requires a region and a depth")
		}
		region, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("depth: region: %w", err)
		}
		d, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("depth: %w", err)
		}
		if err := sc.SetDepth(ctx, int(region), int(d)); err != nil {
			return zygo.SexpNull, fmt.Errorf("depth: %w", err)
		}
		tr.record("depth", fmt.Sprintf("%d %d", region, d), sc.State())
		return &zygo.SexpInt{Val: int64(sc.Graph().Len())}, nil
	})

	// (depths d) or (depths (list d0 ... d7))
	env.AddFunction("depths", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("depths requires a depth or a list of %d depths", kernel.RegionCount)
		}
		var depths [kernel.RegionCount]int
		if d, err := toInt(args[0]); err == nil {
			for i := range depths {
				depths[i] = int(d)
			}
		} else {
			items, err := sexpListToSlice(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("depths: %w", err)
			}
			if len(items) != kernel.RegionCount {
				return zygo.SexpNull, fmt.Errorf("depths: expected %d depths, got %d", kernel.RegionCount, len(items))
			}
			for i, item := range items {
				d, err := toInt(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("depths: entry %d: %w", i, err)
				}
				depths[i] = int(d)
			}
		}
		if err := sc.SetDepths(ctx, depths); err != nil {
			return zygo.SexpNull, fmt.Errorf("depths: %w", err)
		}
		tr.record("depths", fmt.Sprint(depths), sc.State())
		return &zygo.SexpInt{Val: int64(sc.Graph().Len())}, nil
	})

	// (view 5 5 5) or (view :x 5 :y 5 :z 5) -> number of regions rebuilt
	env.AddFunction("view", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var xyz [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			v, ok := pa.kw[axis]
			if !ok {
				if i >= len(pa.positional) {
					return zygo.SexpNull, fmt.Errorf("view requires x, y and z")
				}
				v = pa.positional[i]
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("view: %s: %w", axis, err)
			}
			xyz[i] = f
		}
		changed, err := sc.Tick(ctx, v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("view: %w", err)
		}
		if len(changed) > 0 {
			tr.record("view", fmt.Sprint(xyz), sc.State())
		}
		return &zygo.SexpInt{Val: int64(len(changed))}, nil
	})

	// -----------------------------------------------------------------------
	// Queries
	// -----------------------------------------------------------------------
	env.AddFunction("neighbors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, err := triangleArg("neighbors", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if !sc.Graph().Has(id) {
			return zygo.SexpNull, fmt.Errorf("neighbors: unknown triangle %d", id)
		}
		return idList(sc.Graph().Neighbors(id)), nil
	})

	env.AddFunction("selected", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return idOrNull(sc.State().Selected), nil
	})

	env.AddFunction("hovered", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return idOrNull(sc.State().Hovered), nil
	})

	env.AddFunction("mode", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &zygo.SexpStr{S: sc.State().Mode.String()}, nil
	})

	env.AddFunction("path", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return idList(sc.State().Path), nil
	})

	// (color id) -> "default" | "hovered-base" | "selected" | "navigation-hover"
	env.AddFunction("color", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, err := triangleArg("color", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpStr{S: interact.ColorOf(sc.State(), id).String()}, nil
	})
}
