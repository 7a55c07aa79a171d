// Package pick resolves rays to triangle identifiers. It stands in for the
// renderer's own picking in tools and tests.
package pick

import (
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/kernel/sdfx"
	"github.com/chazu/octasphere/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// wedgeTolerance admits hits on a shared edge to both triangles; the first
// match in build order wins.
const wedgeTolerance = 1e-12

// Ray is a half-line Origin + t·Dir, t >= 0.
type Ray struct {
	Origin v3.Vec
	Dir    v3.Vec
}

// Toward returns the ray from eye through target.
func Toward(eye, target v3.Vec) Ray {
	return Ray{Origin: eye, Dir: target.Sub(eye)}
}

// Picker maps rays to triangles of one set of regions. Build a new Picker
// after every rebuild.
type Picker struct {
	surface *sdfx.Surface
	regions []*tessellate.Region
}

// New returns a picker over regions, which must have been built at the
// surface's radius.
func New(surface *sdfx.Surface, regions []*tessellate.Region) *Picker {
	return &Picker{surface: surface, regions: regions}
}

// Pick returns the first triangle hit by r.
func (p *Picker) Pick(r Ray) (kernel.TriangleID, bool) {
	hit, ok := p.surface.Trace(r.Origin, r.Dir)
	if !ok {
		return kernel.NoTriangle, false
	}
	return p.At(hit)
}

// At returns the triangle whose spherical wedge contains the direction of
// point. Every subdivided edge lies on a great circle, so the wedges tile
// the sphere even where neighboring regions differ in depth.
func (p *Picker) At(point v3.Vec) (kernel.TriangleID, bool) {
	for _, r := range p.regions {
		if r == nil || !inWedge(r.Base, point) {
			continue
		}
		for _, t := range r.Triangles {
			if inWedge(t.Face, point) {
				return t.ID, true
			}
		}
	}
	return kernel.NoTriangle, false
}

// inWedge reports whether p lies on the inner side of the three planes
// through the origin and each edge of the outward-wound face f.
func inWedge(f kernel.Face, p v3.Vec) bool {
	for i := range 3 {
		a, b := f[i], f[(i+1)%3]
		if a.Cross(b).Dot(p) < -wedgeTolerance {
			return false
		}
	}
	return true
}
