package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdRandoms is the sample size used to estimate each split median.
const kdRandoms = 100

// KDTree is an Index backed by gonum's k-d tree.
type KDTree struct {
	tree *kdtree.Tree
	n    int
}

var _ Index = (*KDTree)(nil)

// NewKDTree builds a k-d tree over points.
func NewKDTree(points []Vec) *KDTree {
	s := make(sites, len(points))
	for i, p := range points {
		s[i] = site{p: p, pos: i}
	}
	return &KDTree{
		tree: kdtree.New(s, false),
		n:    len(points),
	}
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int { return t.n }

// Query returns all points within radius of center.
func (t *KDTree) Query(center Vec, radius float64) []Hit {
	if t.n == 0 || radius < 0 {
		return nil
	}

	// Comparable distances are squared; the keeper bound is too.
	keep := kdtree.NewDistKeeper(radius * radius)
	t.tree.NearestSet(keep, site{p: center, pos: -1})

	hits := make([]Hit, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		s, ok := c.Comparable.(site)
		if !ok {
			continue // sentinel
		}
		hits = append(hits, Hit{Position: s.pos, Distance: math.Sqrt(c.Dist)})
	}
	return hits
}

// site is a point tagged with its input position.
type site struct {
	p   Vec
	pos int
}

func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(site)
	return coord(s.p, d) - coord(q.p, d)
}

func (s site) Dims() int { return 3 }

func (s site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	dx, dy, dz := s.p.X-q.p.X, s.p.Y-q.p.Y, s.p.Z-q.p.Z
	return dx*dx + dy*dy + dz*dz
}

type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Pivot(d kdtree.Dim) int                { return plane{sites: s, dim: d}.Pivot() }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

// plane sorts sites along one dimension for median pivoting.
type plane struct {
	sites
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return coord(p.sites[i].p, p.dim) < coord(p.sites[j].p, p.dim) }
func (p plane) Swap(i, j int)      { p.sites[i], p.sites[j] = p.sites[j], p.sites[i] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfRandoms(p, kdRandoms)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.sites = p.sites[start:end]
	return p
}

func coord(v Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
