package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// RegionCount is the number of octahedron faces, one region each.
const RegionCount = 8

// poles are the unit octahedron vertices.
var poles = [6]v3.Vec{
	{X: 1, Y: 0, Z: 0},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: -1},
}

// baseFaces indexes poles for each region, wound counter-clockwise when
// seen from outside the sphere.
var baseFaces = [RegionCount][3]int{
	{0, 2, 4}, {0, 4, 3}, {0, 3, 5}, {0, 5, 2},
	{1, 2, 5}, {1, 5, 3}, {1, 3, 4}, {1, 4, 2},
}

// SeamCount is the number of octahedron edges, each shared by two regions.
const SeamCount = 12

// seams indexes the two poles joined by each octahedron edge.
var seams = [SeamCount][2]int{
	{0, 2}, {0, 3}, {0, 4}, {0, 5},
	{1, 2}, {1, 3}, {1, 4}, {1, 5},
	{2, 4}, {2, 5}, {3, 4}, {3, 5},
}

// BaseFace returns region i's face with its vertices projected to radius.
// Projection happens before any subdivision so that two regions sharing a
// base edge start from bit-identical endpoints.
func BaseFace(i int, radius float64) Face {
	idx := baseFaces[i]
	return Face{
		Project(poles[idx[0]], radius),
		Project(poles[idx[1]], radius),
		Project(poles[idx[2]], radius),
	}
}

// Octahedron returns all eight base faces at the given radius.
func Octahedron(radius float64) [RegionCount]Face {
	var faces [RegionCount]Face
	for i := range faces {
		faces[i] = BaseFace(i, radius)
	}
	return faces
}

// OnSeam reports whether the segment ab lies on a base octahedron edge.
// Every base edge lies in a coordinate plane and subdivision keeps the
// zero coordinate exactly zero, so a seam edge has a shared coordinate
// within eps of zero.
func OnSeam(a, b v3.Vec, eps float64) bool {
	return (abs(a.X) < eps && abs(b.X) < eps) ||
		(abs(a.Y) < eps && abs(b.Y) < eps) ||
		(abs(a.Z) < eps && abs(b.Z) < eps)
}

// SeamOf returns the octahedron edge containing the segment ab, or -1 when
// ab is not a seam segment.
func SeamOf(a, b v3.Vec, eps float64) int {
	if !OnSeam(a, b, eps) {
		return -1
	}
	m := a.Add(b)
	for i, e := range seams {
		p, q := poles[e[0]], poles[e[1]]
		if abs(m.Dot(p.Cross(q))) < 2*eps && m.Dot(p) > 0 && m.Dot(q) > 0 {
			return i
		}
	}
	return -1
}

// SeamParam returns the angle in [0, π/2] of v along seam, measured from
// the seam's first pole.
func SeamParam(seam int, v v3.Vec) float64 {
	e := seams[seam]
	return math.Atan2(v.Dot(poles[e[1]]), v.Dot(poles[e[0]]))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
