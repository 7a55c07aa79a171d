// Package lod picks a subdivision depth for each octahedron region from the
// distance between the viewpoint and the region's centroid.
package lod

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/octasphere/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Threshold maps distances strictly below Below to Depth.
type Threshold struct {
	Below float64 `yaml:"below"`
	Depth int     `yaml:"depth"`
}

// Policy is an ordered list of thresholds plus the depth used beyond the
// last one.
type Policy struct {
	Thresholds []Threshold
	Far        int
}

// DefaultPolicy returns the stock thresholds: <4 -> 6, <8 -> 4, <14 -> 2,
// otherwise 1.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds: []Threshold{
			{Below: 4, Depth: 6},
			{Below: 8, Depth: 4},
			{Below: 14, Depth: 2},
		},
		Far: 1,
	}
}

// Validate checks that thresholds ascend and depths are buildable.
func (p Policy) Validate() error {
	var errs []error
	for i, t := range p.Thresholds {
		if t.Below <= 0 {
			errs = append(errs, fmt.Errorf("threshold %d: distance %v must be positive", i, t.Below))
		}
		if i > 0 && t.Below <= p.Thresholds[i-1].Below {
			errs = append(errs, fmt.Errorf("threshold %d: distance %v not above %v", i, t.Below, p.Thresholds[i-1].Below))
		}
		if err := kernel.CheckLevel(t.Depth); err != nil {
			errs = append(errs, fmt.Errorf("threshold %d: %w", i, err))
		}
	}
	if err := kernel.CheckLevel(p.Far); err != nil {
		errs = append(errs, fmt.Errorf("far depth: %w", err))
	}
	return errors.Join(errs...)
}

// DepthFor returns the depth for a viewpoint at distance d.
func (p Policy) DepthFor(d float64) int {
	for _, t := range p.Thresholds {
		if d < t.Below {
			return t.Depth
		}
	}
	return p.Far
}

// ---------------------------------------------------------------------------
// Controller
// ---------------------------------------------------------------------------

// Controller tracks the current depth of every region.
type Controller struct {
	policy    Policy
	maxDepth  int
	centroids [kernel.RegionCount]v3.Vec
	depths    [kernel.RegionCount]int
}

// NewController returns a controller whose regions start at initial depth.
// Depths chosen by the policy are clamped to maxDepth.
func NewController(p Policy, radius float64, initial, maxDepth int) (*Controller, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("lod: invalid policy: %w", err)
	}
	if err := kernel.CheckLevel(maxDepth); err != nil {
		return nil, fmt.Errorf("lod: max depth: %w", err)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("lod: %w: %v", kernel.ErrInvalidRadius, radius)
	}
	c := &Controller{policy: p, maxDepth: maxDepth}
	for i := range c.centroids {
		c.centroids[i] = Centroid(i, radius)
		c.depths[i] = c.clamp(initial)
	}
	return c, nil
}

// Centroid returns the point on the sphere above region i's base centroid.
func Centroid(i int, radius float64) v3.Vec {
	return kernel.Project(kernel.Centroid(kernel.BaseFace(i, radius)), radius)
}

func (c *Controller) clamp(d int) int {
	return min(max(d, 0), c.maxDepth)
}

// Update evaluates the policy for viewpoint and returns the new depths
// together with the regions whose depth changed, in ascending order.
func (c *Controller) Update(viewpoint v3.Vec) ([kernel.RegionCount]int, []int) {
	var changed []int
	for i, centroid := range c.centroids {
		d := c.clamp(c.policy.DepthFor(viewpoint.Sub(centroid).Length()))
		if d != c.depths[i] {
			c.depths[i] = d
			changed = append(changed, i)
		}
	}
	return c.depths, changed
}

// Distances returns the viewpoint distance to every region centroid.
func (c *Controller) Distances(viewpoint v3.Vec) [kernel.RegionCount]float64 {
	var out [kernel.RegionCount]float64
	for i, centroid := range c.centroids {
		out[i] = viewpoint.Sub(centroid).Length()
	}
	return out
}

// Depths returns the current depths.
func (c *Controller) Depths() [kernel.RegionCount]int {
	return c.depths
}

// Override forces region depths, e.g. after a manual depth change, so the
// next Update reports changes relative to what is actually built.
func (c *Controller) Override(depths [kernel.RegionCount]int) {
	for i, d := range depths {
		c.depths[i] = c.clamp(d)
	}
}

// Policy returns a copy of the controller's policy.
func (c *Controller) Policy() Policy {
	p := c.policy
	p.Thresholds = slices.Clone(p.Thresholds)
	return p
}

// MaxDepth returns the clamp applied to every depth.
func (c *Controller) MaxDepth() int {
	return c.maxDepth
}
