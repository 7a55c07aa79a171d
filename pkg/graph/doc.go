// Package graph builds the triangle adjacency graph of the sphere.
// Two triangles are neighbors iff they share exactly two vertices, where
// "same vertex" is decided by snapping coordinates to a fixed decimal
// precision. The graph is immutable; every rebuild produces a new one.
package graph
