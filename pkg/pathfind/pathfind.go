// Package pathfind computes shortest paths, in adjacency hops, between
// triangles of the sphere.
package pathfind

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/golang/groupcache/lru"
)

// ErrUnknownTriangle is returned when a path endpoint is not part of the
// graph being searched.
var ErrUnknownTriangle = errors.New("pathfind: unknown triangle")

// DefaultCacheSize is used by NewFinder for a non-positive capacity.
const DefaultCacheSize = 256

// Graph is the read side of an adjacency graph. *graph.Graph satisfies it.
type Graph interface {
	Has(id kernel.TriangleID) bool
	Neighbors(id kernel.TriangleID) []kernel.TriangleID
}

// Find returns the shortest path from start to end inclusive of both
// endpoints. start == end yields [start]. When end cannot be reached the
// path is empty and the error is nil.
//
// Neighbors are expanded in the graph's insertion order, so among several
// shortest paths the result is deterministic for a given graph.
func Find(g Graph, start, end kernel.TriangleID) ([]kernel.TriangleID, error) {
	if !g.Has(start) {
		return nil, fmt.Errorf("%w: start %d", ErrUnknownTriangle, start)
	}
	if !g.Has(end) {
		return nil, fmt.Errorf("%w: end %d", ErrUnknownTriangle, end)
	}
	if start == end {
		return []kernel.TriangleID{start}, nil
	}

	parent := map[kernel.TriangleID]kernel.TriangleID{start: kernel.NoTriangle}
	queue := []kernel.TriangleID{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, n := range g.Neighbors(current) {
			if _, seen := parent[n]; seen {
				continue
			}
			parent[n] = current
			if n == end {
				return walkBack(parent, end), nil
			}
			queue = append(queue, n)
		}
	}
	return []kernel.TriangleID{}, nil
}

func walkBack(parent map[kernel.TriangleID]kernel.TriangleID, end kernel.TriangleID) []kernel.TriangleID {
	var path []kernel.TriangleID
	for id := end; id != kernel.NoTriangle; id = parent[id] {
		path = append(path, id)
	}
	slices.Reverse(path)
	return path
}

// ---------------------------------------------------------------------------
// Finder
// ---------------------------------------------------------------------------

// Stats reports cache effectiveness of a Finder.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

type pair struct {
	start, end kernel.TriangleID
}

// Finder memoizes Find against a single immutable graph. A rebuilt graph
// needs a new Finder; the cache is never invalidated in place.
// Finder is not safe for concurrent use.
type Finder struct {
	g      Graph
	cache  *lru.Cache
	hits   int64
	misses int64
}

// NewFinder returns a Finder over g remembering up to size results.
func NewFinder(g Graph, size int) *Finder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Finder{g: g, cache: lru.New(size)}
}

// Find behaves like the package-level Find. Returned slices are copies and
// may be modified by the caller.
func (f *Finder) Find(start, end kernel.TriangleID) ([]kernel.TriangleID, error) {
	key := pair{start, end}
	if v, ok := f.cache.Get(key); ok {
		f.hits++
		return slices.Clone(v.([]kernel.TriangleID)), nil
	}
	f.misses++

	path, err := Find(f.g, start, end)
	if err != nil {
		return nil, err
	}
	f.cache.Add(key, path)
	return slices.Clone(path), nil
}

// Graph returns the graph the finder searches.
func (f *Finder) Graph() Graph {
	return f.g
}

// Stats returns a snapshot of the cache counters.
func (f *Finder) Stats() Stats {
	return Stats{Hits: f.hits, Misses: f.misses, Entries: f.cache.Len()}
}
