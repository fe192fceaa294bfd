package neighbors

import (
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/neighbors/internal/registry"
	"github.com/hupe1980/neighbors/lattice"
	"github.com/hupe1980/neighbors/spatial"
)

// Point is a Cartesian coordinate.
type Point = [3]float64

// Entry pairs a caller key with a coordinate for Update.
type Entry[K comparable] struct {
	Key   K
	Point Point
}

// Neighbor is a point found within the search radius.
type Neighbor[K comparable] struct {
	// Node is the key of the neighboring point.
	Node K

	// Distance is the Euclidean distance from the query to this image of Node.
	Distance float64

	// Image is nil in aperiodic mode. In periodic mode it is the lattice
	// translation that moves the stored point of Node onto the neighbor,
	// that is Distance == |Position(Node) + Lattice().Displacement(*Image) - query|.
	Image *lattice.Image
}

// Mode reports whether searches honor periodic boundary conditions.
type Mode int

const (
	// ModeAperiodic searches the stored points only.
	ModeAperiodic Mode = iota
	// ModePeriodic searches all periodic images of the stored points.
	ModePeriodic
)

func (m Mode) String() string {
	switch m {
	case ModeAperiodic:
		return "aperiodic"
	case ModePeriodic:
		return "periodic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Neighborhood answers fixed-radius neighbor queries over a keyed point set,
// optionally under periodic boundary conditions.
//
// It uses a copy-on-write pattern: every Update, SetLattice, ClearLattice and
// Reset publishes a new immutable snapshot, so queries never block and may
// run concurrently with each other and with writers. Writers are serialized.
type Neighborhood[K comparable] struct {
	state   atomic.Pointer[snapshot[K]]
	writeMu sync.Mutex // Serializes writes only
	opts    options
}

// snapshot is the immutable state queries run against.
type snapshot[K comparable] struct {
	reg   *registry.Registry[K, spatial.Vec] // nil before the first Update
	index spatial.Index                      // built over reg.Values()
	lat   *lattice.Lattice                   // nil in aperiodic mode
	frac  fracBounds                         // fractional extent of the points under lat
	halo  *haloCache                         // StrategyHalo only
}

// New creates an empty Neighborhood. Queries fail with ErrIndexNotReady
// until the first Update.
func New[K comparable](optFns ...Option) *Neighborhood[K] {
	n := &Neighborhood[K]{
		opts: applyOptions(optFns),
	}
	n.state.Store(&snapshot[K]{})
	return n
}

// Update inserts or replaces the coordinates of the given keys and rebuilds
// the spatial index over all registered points.
//
// Later entries win over earlier ones with the same key. New keys are
// appended after all existing keys; existing keys keep their position and
// keys not mentioned keep their coordinate. Calling Update without entries
// makes an empty Neighborhood queryable.
//
// Update fails with an InvalidPointError, and changes nothing, if any
// coordinate is NaN or infinite.
func (n *Neighborhood[K]) Update(entries ...Entry[K]) error {
	start := time.Now()

	for _, e := range entries {
		if !isFinite(e.Point) {
			err := &InvalidPointError[K]{Key: e.Key, Point: e.Point}
			n.opts.logger.LogRebuild(n.NPoints(), 0, n.opts.backend, 0, err)
			n.opts.metricsCollector.RecordUpdate(len(entries), n.NPoints(), time.Since(start), err)
			return err
		}
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	old := n.state.Load()

	var reg *registry.Registry[K, spatial.Vec]
	if old.reg == nil {
		reg = registry.New[K, spatial.Vec](len(entries))
	} else {
		reg = old.reg.Clone(len(entries))
	}

	added := 0
	for _, e := range entries {
		if _, isNew := reg.Set(e.Key, toVec(e.Point)); isNew {
			added++
		}
	}

	next := &snapshot[K]{
		reg:   reg,
		index: spatial.New(n.opts.backend, reg.Values(), n.opts.bucketSize),
		lat:   old.lat,
	}
	n.prepare(next)
	n.state.Store(next)

	d := time.Since(start)
	n.opts.logger.LogRebuild(reg.Len(), added, n.opts.backend, d, nil)
	n.opts.metricsCollector.RecordUpdate(len(entries), reg.Len(), d, nil)

	return nil
}

// UpdateSeq applies all pairs of seq in a single Update.
func (n *Neighborhood[K]) UpdateSeq(seq iter.Seq2[K, Point]) error {
	var entries []Entry[K]
	for k, p := range seq {
		entries = append(entries, Entry[K]{Key: k, Point: p})
	}
	return n.Update(entries...)
}

// SetLattice switches to periodic mode with the unit cell whose lattice
// vectors are the rows of m. Registered points and the spatial index are kept.
//
// It returns ErrDegenerateLattice, leaving the current mode unchanged, if the
// cell has (almost) no volume.
func (n *Neighborhood[K]) SetLattice(m [3][3]float64) error {
	lat, err := lattice.New(m)
	if err != nil {
		n.opts.logger.LogLattice(nil, err)
		return err
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	n.state.Store(n.withLattice(n.state.Load(), lat))
	n.opts.logger.LogLattice(lat, nil)

	return nil
}

// ClearLattice switches back to aperiodic mode.
func (n *Neighborhood[K]) ClearLattice() {
	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	n.state.Store(n.withLattice(n.state.Load(), nil))
	n.opts.logger.LogLattice(nil, nil)
}

// Reset removes all points and the lattice. Queries fail with
// ErrIndexNotReady until the next Update.
func (n *Neighborhood[K]) Reset() {
	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	n.state.Store(&snapshot[K]{})
}

// Lattice returns the current unit cell, or nil in aperiodic mode.
func (n *Neighborhood[K]) Lattice() *lattice.Lattice {
	return n.state.Load().lat
}

// Mode returns the current search mode.
func (n *Neighborhood[K]) Mode() Mode {
	if n.state.Load().lat != nil {
		return ModePeriodic
	}
	return ModeAperiodic
}

// Periodic reports whether a lattice is set.
func (n *Neighborhood[K]) Periodic() bool {
	return n.Mode() == ModePeriodic
}

// NPoints returns the number of registered points.
func (n *Neighborhood[K]) NPoints() int {
	s := n.state.Load()
	if s.reg == nil {
		return 0
	}
	return s.reg.Len()
}

// Position returns the coordinate registered for key.
func (n *Neighborhood[K]) Position(key K) (Point, bool) {
	s := n.state.Load()
	if s.reg == nil {
		return Point{}, false
	}
	v, ok := s.reg.Get(key)
	if !ok {
		return Point{}, false
	}
	return fromVec(v), true
}

// Keys returns all registered keys in insertion order.
func (n *Neighborhood[K]) Keys() []K {
	s := n.state.Load()
	if s.reg == nil {
		return nil
	}
	return slices.Clone(s.reg.Keys())
}

// Search returns every point, or periodic image of a point, within radius
// of p. Points at exactly radius are included; no result is excluded for
// coinciding with p. The order of the results is unspecified.
func (n *Neighborhood[K]) Search(p Point, radius float64) ([]Neighbor[K], error) {
	start := time.Now()
	s := n.state.Load()

	q, err := s.queryPoint(p, radius)
	if err != nil {
		n.opts.metricsCollector.RecordSearch(0, time.Since(start), err)
		return nil, err
	}

	var out []Neighbor[K]
	n.visit(s, q, radius, func(nb Neighbor[K]) bool {
		out = append(out, nb)
		return true
	})

	n.opts.metricsCollector.RecordSearch(len(out), time.Since(start), nil)
	return out, nil
}

// Neighbors returns the neighbors of a registered point within radius.
//
// The host's own entry is dropped only when it is closer than the self
// epsilon (see WithSelfEpsilon). In small periodic cells the host can
// appear again through non-zero images, and those entries are kept.
func (n *Neighborhood[K]) Neighbors(key K, radius float64) ([]Neighbor[K], error) {
	start := time.Now()
	s := n.state.Load()

	q, err := s.hostPoint(key, radius)
	if err != nil {
		n.opts.metricsCollector.RecordNeighbors(0, time.Since(start), err)
		return nil, err
	}

	var out []Neighbor[K]
	n.visitNeighbors(s, key, q, radius, func(nb Neighbor[K]) bool {
		out = append(out, nb)
		return true
	})

	n.opts.metricsCollector.RecordNeighbors(len(out), time.Since(start), nil)
	return out, nil
}

// queryPoint validates a Search request against s.
func (s *snapshot[K]) queryPoint(p Point, radius float64) (spatial.Vec, error) {
	if s.reg == nil {
		return spatial.Vec{}, ErrIndexNotReady
	}
	if err := s.checkRadius(radius); err != nil {
		return spatial.Vec{}, err
	}
	if !isFinite(p) {
		return spatial.Vec{}, &InvalidPointError[K]{Point: p}
	}
	return toVec(p), nil
}

// hostPoint validates a Neighbors request against s and returns the host coordinate.
func (s *snapshot[K]) hostPoint(key K, radius float64) (spatial.Vec, error) {
	if s.reg == nil {
		return spatial.Vec{}, ErrIndexNotReady
	}
	if err := s.checkRadius(radius); err != nil {
		return spatial.Vec{}, err
	}
	v, ok := s.reg.Get(key)
	if !ok {
		return spatial.Vec{}, &UnknownKeyError[K]{Key: key}
	}
	return v, nil
}

// checkRadius validates radius and, in periodic mode, the number of
// translations it takes to search it.
func (s *snapshot[K]) checkRadius(radius float64) error {
	if err := validateRadius(radius); err != nil {
		return err
	}
	if s.lat == nil {
		return nil
	}
	return s.lat.CheckCutoff(radius, s.frac.spread())
}

// visit streams all results for a validated query to yield until it returns false.
func (n *Neighborhood[K]) visit(s *snapshot[K], q spatial.Vec, radius float64, yield func(Neighbor[K]) bool) {
	switch {
	case s.lat == nil:
		s.visitAperiodic(q, radius, yield)
	case n.opts.strategy == StrategyHalo:
		n.visitHalo(s, q, radius, yield)
	default:
		s.visitMirror(q, radius, yield)
	}
}

// visitNeighbors is visit with the host's own zero-distance entry removed.
func (n *Neighborhood[K]) visitNeighbors(s *snapshot[K], key K, q spatial.Vec, radius float64, yield func(Neighbor[K]) bool) {
	eps := n.opts.selfEpsilon
	n.visit(s, q, radius, func(nb Neighbor[K]) bool {
		if nb.Node == key && nb.Distance < eps {
			return true
		}
		return yield(nb)
	})
}

// withLattice returns a copy of s in the mode given by lat, reusing its index.
func (n *Neighborhood[K]) withLattice(s *snapshot[K], lat *lattice.Lattice) *snapshot[K] {
	next := &snapshot[K]{
		reg:   s.reg,
		index: s.index,
		lat:   lat,
	}
	n.prepare(next)
	return next
}

// prepare derives the periodic search state of s.
func (n *Neighborhood[K]) prepare(s *snapshot[K]) {
	if s.lat == nil || s.reg == nil {
		return
	}
	s.frac = computeFracBounds(s.lat, s.reg.Values())
	if n.opts.strategy == StrategyHalo {
		s.halo = newHaloCache(n.opts.haloCacheSize)
	}
}

func toVec(p Point) spatial.Vec { return spatial.Vec{X: p[0], Y: p[1], Z: p[2]} }

func fromVec(v spatial.Vec) Point { return Point{v.X, v.Y, v.Z} }
