// Package spatial provides fixed-radius indexes over 3D point clouds.
//
// An Index is built once over an ordered slice of points and answers "which
// stored points lie within radius r of a query point". Results carry the
// position of the point in the slice the index was built from, so callers
// can map hits back to their own identifiers.
//
// Two backends are available:
//   - BackendOctree: a bucketed octree whose leaves hold at most bucketSize points (default)
//   - BackendKDTree: a k-d tree from gonum.org/v1/gonum/spatial/kdtree
//
// Indexes are immutable after construction and safe for concurrent queries.
package spatial

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a Cartesian point.
type Vec = r3.Vec

// Hit is a stored point found by a radius query.
type Hit struct {
	// Position is the index of the point in the slice the Index was built from.
	Position int

	// Distance is the Euclidean distance to the query point.
	Distance float64
}

// Index answers inclusive radius queries over a fixed point set.
type Index interface {
	// Query returns every stored point p with |p - center| <= radius.
	// The order of the returned hits is unspecified.
	Query(center Vec, radius float64) []Hit

	// Len returns the number of indexed points.
	Len() int
}

// Backend selects an Index implementation.
type Backend int

const (
	// BackendOctree builds a bucketed octree.
	BackendOctree Backend = iota
	// BackendKDTree builds a gonum k-d tree. The bucket size is ignored.
	BackendKDTree
)

// DefaultBucketSize is the leaf capacity used when a non-positive bucket size is given.
const DefaultBucketSize = 100

// New builds an Index over points using the given backend.
func New(b Backend, points []Vec, bucketSize int) Index {
	switch b {
	case BackendKDTree:
		return NewKDTree(points)
	default:
		return NewOctree(points, bucketSize)
	}
}

func (b Backend) String() string {
	switch b {
	case BackendOctree:
		return "octree"
	case BackendKDTree:
		return "kdtree"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend returns the backend with the given name.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "octree":
		return BackendOctree, nil
	case "kdtree", "kd-tree":
		return BackendKDTree, nil
	default:
		return 0, fmt.Errorf("spatial: unknown backend %q", s)
	}
}
