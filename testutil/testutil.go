package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/neighbors/lattice"
	"gonum.org/v1/gonum/spatial/r3"
)

// Match is a reference search result.
type Match struct {
	Position int
	Distance float64
	Image    lattice.Image
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformPoints generates points uniformly distributed in the cube [lo, hi)³.
func (r *RNG) UniformPoints(n int, lo, hi float64) []r3.Vec {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := hi - lo
	points := make([]r3.Vec, n)
	for i := range points {
		points[i] = r3.Vec{
			X: lo + r.rand.Float64()*span,
			Y: lo + r.rand.Float64()*span,
			Z: lo + r.rand.Float64()*span,
		}
	}
	return points
}

// ClusteredPoints generates points scattered with Gaussian noise around
// random centers in [-extent, extent)³. Dense clusters exercise bucket
// splitting far more than uniform data.
func (r *RNG) ClusteredPoints(n, clusters int, extent, spread float64) []r3.Vec {
	centers := r.UniformPoints(clusters, -extent, extent)

	r.mu.Lock()
	defer r.mu.Unlock()

	points := make([]r3.Vec, n)
	for i := range points {
		c := centers[i%clusters]
		points[i] = r3.Vec{
			X: c.X + r.rand.NormFloat64()*spread,
			Y: c.Y + r.rand.NormFloat64()*spread,
			Z: c.Z + r.rand.NormFloat64()*spread,
		}
	}
	return points
}

// PointsInCell generates points with fractional coordinates uniform in
// [-margin, 1+margin)³ of lat. A positive margin places points outside the
// primary cell.
func (r *RNG) PointsInCell(lat *lattice.Lattice, n int, margin float64) []r3.Vec {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := 1 + 2*margin
	points := make([]r3.Vec, n)
	for i := range points {
		f := r3.Vec{
			X: -margin + r.rand.Float64()*span,
			Y: -margin + r.rand.Float64()*span,
			Z: -margin + r.rand.Float64()*span,
		}
		points[i] = lat.ToCart(f)
	}
	return points
}

// TriclinicCell returns a random non-degenerate cell whose vector lengths lie
// in [minLen, maxLen) and whose off-diagonal shear is at most skew times the
// diagonal.
func (r *RNG) TriclinicCell(minLen, maxLen, skew float64) [3][3]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m [3][3]float64
	for i := range 3 {
		m[i][i] = minLen + r.rand.Float64()*(maxLen-minLen)
	}
	// Lower triangular keeps the determinant equal to the diagonal product.
	m[1][0] = (r.rand.Float64()*2 - 1) * skew * m[1][1]
	m[2][0] = (r.rand.Float64()*2 - 1) * skew * m[2][2]
	m[2][1] = (r.rand.Float64()*2 - 1) * skew * m[2][2]
	return m
}

// BruteForce returns every point within radius of center by exhaustive scan.
func BruteForce(points []r3.Vec, center r3.Vec, radius float64) []Match {
	var out []Match
	for i, p := range points {
		if d := r3.Norm(r3.Sub(p, center)); d <= radius {
			out = append(out, Match{Position: i, Distance: d})
		}
	}
	return out
}

// BruteForcePeriodic returns every periodic image of every point within
// radius of center. Image is the translation applied to the stored point.
//
// The translation range is derived per point from its fractional offset to
// the center, so points far outside the primary cell are still found.
func BruteForcePeriodic(lat *lattice.Lattice, points []r3.Vec, center r3.Vec, radius float64) []Match {
	w := lat.Widths()
	var rc [3]float64
	for i := range 3 {
		rc[i] = radius / w[i]
	}

	fq := lat.ToFrac(center)
	var out []Match
	for i, p := range points {
		d := r3.Sub(lat.ToFrac(p), fq)
		df := [3]float64{d.X, d.Y, d.Z}

		var lo, hi lattice.Image
		for a := range 3 {
			lo[a] = int(math.Floor(-df[a]-rc[a])) - 1
			hi[a] = int(math.Ceil(-df[a]+rc[a])) + 1
		}
		for _, im := range lattice.ImagesInRange(lo, hi) {
			if dist := r3.Norm(r3.Sub(lat.Translate(p, im), center)); dist <= radius {
				out = append(out, Match{Position: i, Distance: dist, Image: im})
			}
		}
	}
	return out
}

// SortMatches orders matches by position, then image, then distance.
func SortMatches(m []Match) {
	slices.SortFunc(m, func(a, b Match) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		for i := range 3 {
			if c := cmp.Compare(a.Image[i], b.Image[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Distance, b.Distance)
	})
}

// SameMatches reports whether got and want hold the same multiset of
// (position, image) pairs with distances equal within tol. Both slices are
// sorted in place.
func SameMatches(got, want []Match, tol float64) bool {
	if len(got) != len(want) {
		return false
	}
	SortMatches(got)
	SortMatches(want)
	for i := range got {
		if got[i].Position != want[i].Position || got[i].Image != want[i].Image {
			return false
		}
		if math.Abs(got[i].Distance-want[i].Distance) > tol {
			return false
		}
	}
	return true
}
