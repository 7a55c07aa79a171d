// Package main provides the octasphere CLI for inspecting the sphere
// without the desktop frontend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/octasphere/pkg/config"
	"github.com/chazu/octasphere/pkg/engine"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/pathfind"
	"github.com/chazu/octasphere/pkg/scene"
	"github.com/chazu/octasphere/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var rootCmd = &cobra.Command{
	Use:   "octasphere",
	Short: "Geodesic octahedron sphere with per-region level of detail",
	Long: `octasphere builds a sphere from the eight faces of an octahedron, refines
each face independently, and answers adjacency and shortest-path queries
over the resulting triangles.`,
	SilenceUsage: true,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print triangle and adjacency counts for a set of depths",
	RunE:  runStats,
}

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Print the shortest triangle path between two triangles",
	Long: `Triangles are given as raw ids or as region:index, where index counts
triangles within the region at its current depth.`,
	Args: cobra.ExactArgs(2),
	RunE: runPath,
}

var lodCmd = &cobra.Command{
	Use:   "lod <x> <y> <z>",
	Short: "Print the region depths chosen for a viewpoint",
	Args:  cobra.ExactArgs(3),
	RunE:  runLOD,
}

var runCmd = &cobra.Command{
	Use:   "run <scenario-file>",
	Short: "Run a scenario script and print each state change",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

var (
	configPath string
	depthFlags []int
	jsonFlag   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().IntSliceVar(&depthFlags, "depth", nil, "Region depths: one value for all regions or eight values")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	lodCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(lodCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config and builds the logger it asks for.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return cfg, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// parseDepths expands --depth into one depth per region.
func parseDepths(flags []int, initial int) ([kernel.RegionCount]int, error) {
	var depths [kernel.RegionCount]int
	switch len(flags) {
	case 0:
		for i := range depths {
			depths[i] = initial
		}
	case 1:
		for i := range depths {
			depths[i] = flags[0]
		}
	case kernel.RegionCount:
		copy(depths[:], flags)
	default:
		return depths, fmt.Errorf("--depth takes 1 or %d values, got %d", kernel.RegionCount, len(flags))
	}
	return depths, nil
}

// openScene builds a scene at the depths given by --depth.
func openScene(ctx context.Context) (*scene.Scene, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	depths, err := parseDepths(depthFlags, cfg.LOD.InitialDepth)
	if err != nil {
		return nil, err
	}
	sc, err := scene.FromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := sc.SetDepths(ctx, depths); err != nil {
		return nil, err
	}
	return sc, nil
}

// parseTriangle accepts a raw id or region:index.
func parseTriangle(s string, depths [kernel.RegionCount]int) (kernel.TriangleID, error) {
	region, index, ok := strings.Cut(s, ":")
	if !ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid triangle %q: %w", s, err)
		}
		return kernel.TriangleID(n), nil
	}
	r, err := strconv.Atoi(region)
	if err != nil {
		return 0, fmt.Errorf("invalid region in %q: %w", s, err)
	}
	if r < 0 || r >= kernel.RegionCount {
		return 0, fmt.Errorf("%w: %d", tessellate.ErrInvalidRegion, r)
	}
	i, err := strconv.Atoi(index)
	if err != nil {
		return 0, fmt.Errorf("invalid index in %q: %w", s, err)
	}
	if i < 0 || i >= kernel.Count(depths[r]) {
		return 0, fmt.Errorf("index %d out of range for region %d at depth %d", i, r, depths[r])
	}
	return tessellate.EncodeID(r, depths[r], i), nil
}

func runStats(cmd *cobra.Command, args []string) error {
	sc, err := openScene(cmd.Context())
	if err != nil {
		return err
	}
	g := sc.Graph()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Depths:    %v\n", sc.Depths())
	fmt.Fprintf(out, "Triangles: %d\n", g.Len())
	fmt.Fprintf(out, "Links:     %d\n", g.EdgeCount())
	h := g.DegreeHistogram()
	for d, n := range h {
		if n > 0 {
			fmt.Fprintf(out, "Degree %d:  %d\n", d, n)
		}
	}
	if w := g.Warnings(); len(w) > 0 {
		fmt.Fprintf(out, "Warnings:  %d (sliver triangles)\n", len(w))
	}
	return nil
}

func runPath(cmd *cobra.Command, args []string) error {
	sc, err := openScene(cmd.Context())
	if err != nil {
		return err
	}
	from, err := parseTriangle(args[0], sc.Depths())
	if err != nil {
		return err
	}
	to, err := parseTriangle(args[1], sc.Depths())
	if err != nil {
		return err
	}

	path, err := pathfind.Find(sc.Graph(), from, to)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(path) == 0 {
		fmt.Fprintf(out, "No path from %d to %d\n", from, to)
		return nil
	}
	fmt.Fprintf(out, "Path (%d triangles, %d steps):\n", len(path), len(path)-1)
	for _, id := range path {
		region, depth, local, err := tessellate.DecodeID(id)
		if errors.Is(err, tessellate.ErrStitched) {
			fmt.Fprintf(out, "  %d\tregion %d stitched\n", id, region)
			continue
		}
		fmt.Fprintf(out, "  %d\tregion %d depth %d index %d\n", id, region, depth, local)
	}
	return nil
}

func runLOD(cmd *cobra.Command, args []string) error {
	var xyz [3]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		xyz[i] = f
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := scene.FromConfig(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	vp := v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	changed, err := sc.Tick(cmd.Context(), vp)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"viewpoint": xyz,
			"depths":    sc.Depths(),
			"changed":   changed,
			"triangles": len(sc.Triangles()),
		})
	}
	depths := sc.Depths()
	for i, d := range depths {
		fmt.Fprintf(out, "Region %d: depth %d\n", i, d)
	}
	fmt.Fprintf(out, "Triangles: %d\n", len(sc.Triangles()))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read scenario: %w", err)
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	eng := engine.NewEngine(scene.OptionsFromConfig(cfg, logger))
	eng.SetTimeout(cfg.Engine.Timeout)
	tr, evalErrs, err := eng.Run(string(source))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e.Error())
		}
		return fmt.Errorf("scenario failed with %d error(s)", len(evalErrs))
	}

	out := cmd.OutOrStdout()
	if jsonFlag {
		steps := make([]string, len(tr.Steps))
		for i, s := range tr.Steps {
			steps[i] = s.String()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":        tr.ID,
			"steps":     steps,
			"final":     tr.Final.String(),
			"depths":    tr.Depths,
			"triangles": tr.Triangles,
		})
	}
	for i, s := range tr.Steps {
		fmt.Fprintf(out, "%3d  %s\n", i+1, s)
	}
	fmt.Fprintf(out, "Final: %s\n", tr.Final)
	return nil
}
