package neighbors

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hupe1980/neighbors/lattice"
	"github.com/hupe1980/neighbors/spatial"
	"golang.org/x/sync/singleflight"
)

// Strategy selects how periodic images are searched.
type Strategy int

const (
	// StrategyMirror translates the query by every lattice translation that
	// can reach a neighbor and queries the index of the stored points once
	// per translation.
	StrategyMirror Strategy = iota
	// StrategyHalo wraps all points into the unit cell, materializes the
	// images within radius of the cell in one enlarged index per radius and
	// queries it once.
	StrategyHalo
)

func (s Strategy) String() string {
	switch s {
	case StrategyMirror:
		return "mirror"
	case StrategyHalo:
		return "halo"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy returns the strategy with the given name.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mirror":
		return StrategyMirror, nil
	case "halo":
		return StrategyHalo, nil
	default:
		return 0, fmt.Errorf("unknown periodic strategy %q", s)
	}
}

// fracSlack widens fractional range tests against rounding.
const fracSlack = 1e-9

// fracBounds is the fractional bounding box of the stored points.
type fracBounds struct {
	min, max [3]float64
	ok       bool
}

func computeFracBounds(lat *lattice.Lattice, points []spatial.Vec) fracBounds {
	b := fracBounds{
		min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, p := range points {
		f := lat.ToFrac(p)
		for i, c := range [3]float64{f.X, f.Y, f.Z} {
			b.min[i] = math.Min(b.min[i], c)
			b.max[i] = math.Max(b.max[i], c)
		}
	}
	b.ok = len(points) > 0
	return b
}

// spread returns the fractional extent of the points per axis.
func (b fracBounds) spread() [3]float64 {
	if !b.ok {
		return [3]float64{}
	}
	return [3]float64{b.max[0] - b.min[0], b.max[1] - b.min[1], b.max[2] - b.min[2]}
}

// mirrorImages returns the translations t for which q + t may lie within
// radius of a stored point.
//
// Along each axis t must bring the fractional coordinate of q within
// radius / width of the fractional extent of the points, so the box depends
// on that extent and not on how far q lies from the cell.
func (s *snapshot[K]) mirrorImages(q spatial.Vec, radius float64) []lattice.Image {
	if !s.frac.ok {
		return nil
	}

	var lo, hi lattice.Image
	fq := s.lat.ToFrac(q)
	w := s.lat.Widths()
	for i, c := range [3]float64{fq.X, fq.Y, fq.Z} {
		rc := radius / w[i]
		lo[i] = int(math.Ceil(s.frac.min[i] - c - rc - fracSlack))
		hi[i] = int(math.Floor(s.frac.max[i] - c + rc + fracSlack))
	}

	return lattice.ImagesInRange(lo, hi)
}

// visitMirror queries the index once per translation t at q + t. A stored
// point hit there is a neighbor through the image -t.
func (s *snapshot[K]) visitMirror(q spatial.Vec, radius float64, yield func(Neighbor[K]) bool) {
	keys := s.reg.Keys()
	for _, t := range s.mirrorImages(q, radius) {
		hits := s.index.Query(s.lat.Translate(q, t), radius)
		for _, h := range hits {
			im := t.Neg()
			if !yield(Neighbor[K]{Node: keys[h.Position], Distance: h.Distance, Image: &im}) {
				return
			}
		}
	}
}

// haloIndex holds the images of all points within one radius of the unit cell.
type haloIndex struct {
	index  spatial.Index
	origin []int           // registry position of each image
	images []lattice.Image // translation applied to the stored point
}

// haloCache keeps the halo indexes of one snapshot, keyed by radius.
type haloCache struct {
	lru   *lru.Cache[float64, *haloIndex]
	group singleflight.Group
}

func newHaloCache(size int) *haloCache {
	c, err := lru.New[float64, *haloIndex](size)
	if err != nil {
		// Only a non-positive size fails.
		c, _ = lru.New[float64, *haloIndex](DefaultHaloCacheSize)
	}
	return &haloCache{lru: c}
}

// halo returns the halo index of s for radius, building it at most once
// even under concurrent queries.
func (n *Neighborhood[K]) halo(s *snapshot[K], radius float64) *haloIndex {
	if h, ok := s.halo.lru.Get(radius); ok {
		return h
	}

	v, _, _ := s.halo.group.Do(strconv.FormatFloat(radius, 'g', -1, 64), func() (any, error) {
		if h, ok := s.halo.lru.Get(radius); ok {
			return h, nil
		}

		start := time.Now()
		h := buildHalo(s.lat, s.reg.Values(), radius, n.opts.backend, n.opts.bucketSize)
		s.halo.lru.Add(radius, h)

		d := time.Since(start)
		n.opts.logger.LogHaloBuild(radius, len(h.origin), d)
		n.opts.metricsCollector.RecordHaloBuild(len(h.origin), d)

		return h, nil
	})

	return v.(*haloIndex)
}

// buildHalo wraps every point into the unit cell and keeps each image whose
// fractional coordinates lie within radius of the cell along every axis.
func buildHalo(lat *lattice.Lattice, points []spatial.Vec, radius float64, backend spatial.Backend, bucketSize int) *haloIndex {
	w := lat.Widths()
	var rc [3]float64
	var lo, hi lattice.Image
	for i := range 3 {
		rc[i] = radius / w[i]
		lo[i] = int(math.Floor(-rc[i]))
		hi[i] = int(math.Ceil(1 + rc[i]))
	}
	shifts := lattice.ImagesInRange(lo, hi)

	h := &haloIndex{}
	var cart []spatial.Vec
	for pos, p := range points {
		f, wrapped := lattice.SplitFrac(lat.ToFrac(p))
		for _, shift := range shifts {
			if !inHalo(f, shift, rc) {
				continue
			}
			t := shift.Sub(wrapped)
			cart = append(cart, lat.Translate(p, t))
			h.origin = append(h.origin, pos)
			h.images = append(h.images, t)
		}
	}
	h.index = spatial.New(backend, cart, bucketSize)

	return h
}

func inHalo(f spatial.Vec, shift lattice.Image, rc [3]float64) bool {
	for i, c := range [3]float64{f.X, f.Y, f.Z} {
		c += float64(shift[i])
		if c < -rc[i]-fracSlack || c > 1+rc[i]+fracSlack {
			return false
		}
	}
	return true
}

// visitHalo wraps q into the unit cell and queries the halo index once.
// Images are reported relative to the unwrapped q.
func (n *Neighborhood[K]) visitHalo(s *snapshot[K], q spatial.Vec, radius float64, yield func(Neighbor[K]) bool) {
	h := n.halo(s, radius)
	_, qs := lattice.SplitFrac(s.lat.ToFrac(q))
	qw := s.lat.Translate(q, qs.Neg())

	keys := s.reg.Keys()
	for _, hit := range h.index.Query(qw, radius) {
		im := h.images[hit.Position].Add(qs)
		if !yield(Neighbor[K]{Node: keys[h.origin[hit.Position]], Distance: hit.Distance, Image: &im}) {
			return
		}
	}
}
