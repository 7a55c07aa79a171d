// Package kernel is the geodesic geometry kernel. It produces the
// octahedron base faces and recursively subdivides a face into smaller
// triangles whose vertices all lie on a sphere of fixed radius.
//
// Subdivision uses midpoint-then-project rather than spherical slerp. The
// enumeration order of the produced faces is part of the contract: triangle
// identifiers downstream are assigned by position.
package kernel

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultRadius is the sphere radius used when none is configured.
const DefaultRadius = 2.0

// MaxLevel is the deepest subdivision the kernel accepts. A full sphere at
// this level holds 8·4^8 triangles.
const MaxLevel = 8

// Sentinel errors for kernel operations.
var (
	ErrNegativeLevel = errors.New("kernel: negative subdivision level")
	ErrLevelTooDeep  = errors.New("kernel: subdivision level too deep")
	ErrInvalidRadius = errors.New("kernel: radius must be positive")
)

// Face is an ordered vertex triple.
type Face [3]v3.Vec

// TriangleID identifies a triangle across the whole sphere.
type TriangleID int64

// NoTriangle is the zero value for "no triangle" in places where an ID is
// optional.
const NoTriangle TriangleID = -1

// Triangle is an immutable face with its global identifier.
type Triangle struct {
	ID   TriangleID
	Face Face
}

// Project scales v onto the sphere of the given radius: v / ‖v‖ · radius.
func Project(v v3.Vec, radius float64) v3.Vec {
	l := v.Length()
	return v3.Vec{X: v.X / l * radius, Y: v.Y / l * radius, Z: v.Z / l * radius}
}

// midpoint returns the projected midpoint of the edge ab. a+b is
// commutative in IEEE arithmetic, so both faces sharing an edge get a
// bit-identical midpoint regardless of edge direction.
func midpoint(a, b v3.Vec, radius float64) v3.Vec {
	return Project(a.Add(b).MulScalar(0.5), radius)
}

// Count returns the number of faces Subdivide produces for one face.
func Count(level int) int {
	return 1 << (2 * uint(level))
}

// CheckLevel reports whether level is an acceptable subdivision depth.
func CheckLevel(level int) error {
	if level < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeLevel, level)
	}
	if level > MaxLevel {
		return fmt.Errorf("%w: %d > %d", ErrLevelTooDeep, level, MaxLevel)
	}
	return nil
}

// Subdivide splits f level times. Level 0 returns f unchanged. Each step
// emits the sub-faces (v1,m1,m3), (m1,v2,m2), (m3,m2,v3), (m1,m2,m3) in that
// order, where m1, m2, m3 are the projected midpoints of v1v2, v2v3, v3v1.
func Subdivide(f Face, level int, radius float64) ([]Face, error) {
	if err := CheckLevel(level); err != nil {
		return nil, err
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	out := make([]Face, 0, Count(level))
	return subdivide(out, f, level, radius), nil
}

func subdivide(out []Face, f Face, level int, radius float64) []Face {
	if level == 0 {
		return append(out, f)
	}
	v1, v2, v3 := f[0], f[1], f[2]
	m1 := midpoint(v1, v2, radius)
	m2 := midpoint(v2, v3, radius)
	m3 := midpoint(v3, v1, radius)

	out = subdivide(out, Face{v1, m1, m3}, level-1, radius)
	out = subdivide(out, Face{m1, v2, m2}, level-1, radius)
	out = subdivide(out, Face{m3, m2, v3}, level-1, radius)
	return subdivide(out, Face{m1, m2, m3}, level-1, radius)
}

// Centroid returns the arithmetic mean of the face's vertices. It lies
// inside the sphere; project it to place markers on the surface.
func Centroid(f Face) v3.Vec {
	return f[0].Add(f[1]).Add(f[2]).MulScalar(1.0 / 3.0)
}

// Normal returns the unit face normal following the vertex winding.
func Normal(f Face) v3.Vec {
	n := f[1].Sub(f[0]).Cross(f[2].Sub(f[0]))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}
