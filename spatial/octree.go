package spatial

import (
	"math"
)

// maxOctreeDepth bounds recursion when many points share a location and can
// never be split below the bucket size.
const maxOctreeDepth = 21

// Octree is a bucketed octree for radius queries.
//
// Points are kept in a flat slice and reordered through a permutation array,
// so every node owns a contiguous range order[start:end]. Leaves hold at most
// bucketSize points unless the depth limit is reached.
type Octree struct {
	points     []Vec   // copy of the input, in input order
	order      []int32 // permutation: tree-order position → input position
	nodes      []octNode
	bucketSize int
	slack      float64
}

type octNode struct {
	center   Vec
	half     float64 // half of the cube edge
	start    int32
	end      int32
	children [8]int32 // -1 for empty octants
	leaf     bool
}

var _ Index = (*Octree)(nil)

// NewOctree builds an octree over points. bucketSize is the maximum number of
// points per leaf; values < 1 select DefaultBucketSize.
func NewOctree(points []Vec, bucketSize int) *Octree {
	if bucketSize < 1 {
		bucketSize = DefaultBucketSize
	}

	n := len(points)
	t := &Octree{
		points:     make([]Vec, n),
		order:      make([]int32, n),
		bucketSize: bucketSize,
	}
	copy(t.points, points)
	for i := range t.order {
		t.order[i] = int32(i)
	}
	if n == 0 {
		return t
	}

	center, half := t.bounds()
	scratch := make([]int32, n)
	t.build(0, int32(n), center, half, 0, scratch)

	return t
}

// bounds returns the center and half edge of a cube enclosing all finite points.
func (t *Octree) bounds() (Vec, float64) {
	lo := Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	finite := 0
	for _, p := range t.points {
		// Non-finite points never match a query and must not widen the root.
		if !isFinite(p) {
			continue
		}
		finite++
		lo.X, hi.X = math.Min(lo.X, p.X), math.Max(hi.X, p.X)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y), math.Max(hi.Y, p.Y)
		lo.Z, hi.Z = math.Min(lo.Z, p.Z), math.Max(hi.Z, p.Z)
	}
	if finite == 0 {
		return Vec{}, 1
	}

	center := Vec{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2, Z: (lo.Z + hi.Z) / 2}
	half := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z)) / 2
	if half == 0 {
		half = 1
	}

	// Box edges are recomputed at every level; the slack absorbs rounding so
	// that pruning never drops a point lying on a face.
	scale := math.Max(math.Abs(lo.X), math.Max(math.Abs(lo.Y), math.Abs(lo.Z)))
	scale = math.Max(scale, math.Max(math.Abs(hi.X), math.Max(math.Abs(hi.Y), math.Abs(hi.Z))))
	t.slack = 1e-9 * (scale + half)

	return center, half
}

// build creates the node for order[start:end] and returns its id.
func (t *Octree) build(start, end int32, center Vec, half float64, depth int, scratch []int32) int32 {
	id := int32(len(t.nodes))
	t.nodes = append(t.nodes, octNode{
		center:   center,
		half:     half,
		start:    start,
		end:      end,
		children: [8]int32{-1, -1, -1, -1, -1, -1, -1, -1},
	})

	if int(end-start) <= t.bucketSize || depth >= maxOctreeDepth {
		t.nodes[id].leaf = true
		return id
	}

	// Counting sort of the range by octant.
	var counts [8]int32
	for _, idx := range t.order[start:end] {
		counts[octant(t.points[idx], center)]++
	}
	var offsets [9]int32
	offsets[0] = start
	for o := range 8 {
		offsets[o+1] = offsets[o] + counts[o]
	}
	next := offsets
	for _, idx := range t.order[start:end] {
		o := octant(t.points[idx], center)
		scratch[next[o]] = idx
		next[o]++
	}
	copy(t.order[start:end], scratch[start:end])

	quarter := half / 2
	for o := range 8 {
		if counts[o] == 0 {
			continue
		}
		c := center
		c.X += signed(o&1 != 0, quarter)
		c.Y += signed(o&2 != 0, quarter)
		c.Z += signed(o&4 != 0, quarter)
		child := t.build(offsets[o], offsets[o+1], c, quarter, depth+1, scratch)
		t.nodes[id].children[o] = child
	}

	return id
}

// Len returns the number of indexed points.
func (t *Octree) Len() int { return len(t.points) }

// BucketSize returns the leaf capacity the tree was built with.
func (t *Octree) BucketSize() int { return t.bucketSize }

// Query returns all points within radius of center.
func (t *Octree) Query(center Vec, radius float64) []Hit {
	if len(t.nodes) == 0 || radius < 0 {
		return nil
	}

	r2 := radius * radius
	var hits []Hit
	stack := []int32{0}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &t.nodes[id]

		if boxDist2(center, node.center, node.half+t.slack) > r2 {
			continue
		}

		if node.leaf {
			for _, idx := range t.order[node.start:node.end] {
				p := t.points[idx]
				dx, dy, dz := p.X-center.X, p.Y-center.Y, p.Z-center.Z
				if d2 := dx*dx + dy*dy + dz*dz; d2 <= r2 {
					hits = append(hits, Hit{Position: int(idx), Distance: math.Sqrt(d2)})
				}
			}
			continue
		}

		for _, child := range node.children {
			if child >= 0 {
				stack = append(stack, child)
			}
		}
	}

	return hits
}

// octant returns the child slot of p relative to center: bit 0 for x, 1 for y, 2 for z.
func octant(p, center Vec) int {
	o := 0
	if p.X >= center.X {
		o |= 1
	}
	if p.Y >= center.Y {
		o |= 2
	}
	if p.Z >= center.Z {
		o |= 4
	}
	return o
}

func signed(positive bool, v float64) float64 {
	if positive {
		return v
	}
	return -v
}

// boxDist2 returns the squared distance from p to the cube (center, half).
func boxDist2(p, center Vec, half float64) float64 {
	var d2 float64
	for _, d := range [3]float64{p.X - center.X, p.Y - center.Y, p.Z - center.Z} {
		if g := math.Abs(d) - half; g > 0 {
			d2 += g * g
		}
	}
	return d2
}

func isFinite(v Vec) bool {
	return !math.IsInf(v.X, 0) && !math.IsNaN(v.X) &&
		!math.IsInf(v.Y, 0) && !math.IsNaN(v.Y) &&
		!math.IsInf(v.Z, 0) && !math.IsNaN(v.Z)
}
