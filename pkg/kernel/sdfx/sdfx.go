// Package sdfx measures generated geometry against a signed distance
// field of the sphere, built with the github.com/deadsy/sdfx SDF library.
// It checks the sphere-surface invariant and sphere-traces rays for the
// reference picker.
package sdfx

import (
	"fmt"

	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// maxTraceSteps bounds sphere tracing. Grazing rays converge slowly; a ray
// that has not converged by then is reported as a miss.
const maxTraceSteps = 256

// hitTolerance is the distance at which a traced ray counts as on the surface.
const hitTolerance = 1e-9

// Surface wraps an sdf.SDF3 sphere centered at the origin.
type Surface struct {
	s      sdf.SDF3
	radius float64
}

// New returns the surface of a sphere with the given radius.
func New(radius float64) (*Surface, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	return &Surface{s: s, radius: radius}, nil
}

// Radius returns the sphere radius.
func (s *Surface) Radius() float64 {
	return s.radius
}

// Distance returns the signed distance from p to the sphere surface.
// Negative inside, positive outside.
func (s *Surface) Distance(p v3.Vec) float64 {
	return s.s.Evaluate(p)
}

// BoundingBox returns the axis-aligned bounding box.
func (s *Surface) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// OffSurfaceError reports a vertex that violates the sphere-surface
// invariant.
type OffSurfaceError struct {
	Triangle kernel.TriangleID
	Vertex   v3.Vec
	Distance float64
}

func (e *OffSurfaceError) Error() string {
	return fmt.Sprintf("triangle %d: vertex (%.6f, %.6f, %.6f) is %.3g off the sphere",
		e.Triangle, e.Vertex.X, e.Vertex.Y, e.Vertex.Z, e.Distance)
}

// Check verifies every vertex of every triangle lies within eps of the
// surface. It returns the first violation found.
func (s *Surface) Check(tris []kernel.Triangle, eps float64) error {
	for _, t := range tris {
		for _, v := range t.Face {
			d := s.Distance(v)
			if d >= eps || d <= -eps {
				return &OffSurfaceError{Triangle: t.ID, Vertex: v, Distance: d}
			}
		}
	}
	return nil
}

// Trace sphere-traces the ray origin + t·dir, t >= 0, and returns the first
// surface point hit. dir need not be normalized. Rays starting inside the
// sphere report no hit.
func (s *Surface) Trace(origin, dir v3.Vec) (v3.Vec, bool) {
	l := dir.Length()
	if l == 0 {
		return v3.Vec{}, false
	}
	dir = dir.MulScalar(1 / l)

	if s.Distance(origin) < 0 {
		return v3.Vec{}, false
	}
	far := origin.Length() + 2*s.radius

	t := 0.0
	for i := 0; i < maxTraceSteps; i++ {
		p := origin.Add(dir.MulScalar(t))
		d := s.Distance(p)
		if d < hitTolerance {
			return p, true
		}
		t += d
		if t > far {
			break
		}
	}
	return v3.Vec{}, false
}
