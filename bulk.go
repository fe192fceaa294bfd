package neighbors

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hupe1980/neighbors/lattice"
	"github.com/hupe1980/neighbors/resource"
	"github.com/hupe1980/neighbors/spatial"
	"golang.org/x/sync/errgroup"
)

// BulkOptions configures NeighborList.
type BulkOptions[K comparable] struct {
	// Hosts restricts the run to the given keys. Nil selects every registered key.
	Hosts []K

	// Workers bounds the number of hosts processed concurrently.
	// Values < 1 select runtime.GOMAXPROCS(0).
	Workers int

	// Controller, if set, gates every worker on a worker slot and charges
	// the estimated size of each host's result against its memory budget.
	// The charge is released when NeighborList returns.
	Controller *resource.Controller
}

// NeighborList computes Neighbors(host, radius) for many hosts in parallel
// against a single consistent state.
//
// All hosts are validated before any work starts. The run stops at the first
// failure, including cancellation of ctx and exhaustion of the controller's
// memory budget (resource.ErrMemoryLimit); no partial result is returned.
func (n *Neighborhood[K]) NeighborList(ctx context.Context, radius float64, optFns ...func(o *BulkOptions[K])) (map[K][]Neighbor[K], error) {
	start := time.Now()
	log := n.opts.logger.WithRadius(radius)

	opts := BulkOptions[K]{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	s := n.state.Load()
	hosts := opts.Hosts
	if hosts == nil && s.reg != nil {
		hosts = s.reg.Keys()
	}

	fail := func(err error) (map[K][]Neighbor[K], error) {
		d := time.Since(start)
		log.LogBulk(ctx, len(hosts), 0, d, err)
		n.opts.metricsCollector.RecordBulk(len(hosts), 0, d, err)
		return nil, err
	}

	if s.reg == nil {
		return fail(ErrIndexNotReady)
	}
	if err := validateRadius(radius); err != nil {
		return fail(err)
	}

	points := make([]spatial.Vec, len(hosts))
	for i, k := range hosts {
		q, err := s.hostPoint(k, radius)
		if err != nil {
			return fail(err)
		}
		points[i] = q
	}

	var reserved atomic.Int64
	defer func() { opts.Controller.ReleaseMemory(reserved.Load()) }()

	perNeighbor := int64(unsafe.Sizeof(Neighbor[K]{}))
	if s.lat != nil {
		perNeighbor += int64(unsafe.Sizeof(lattice.Image{}))
	}

	results := make([][]Neighbor[K], len(hosts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, k := range hosts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := opts.Controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer opts.Controller.ReleaseWorker()

			var out []Neighbor[K]
			n.visitNeighbors(s, k, points[i], radius, func(nb Neighbor[K]) bool {
				out = append(out, nb)
				return true
			})

			size := int64(len(out)) * perNeighbor
			if !opts.Controller.TryAcquireMemory(size) {
				return fmt.Errorf("%w: neighbor list of %v needs %d bytes", resource.ErrMemoryLimit, k, size)
			}
			reserved.Add(size)

			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	total := 0
	list := make(map[K][]Neighbor[K], len(hosts))
	for i, k := range hosts {
		list[k] = results[i]
		total += len(results[i])
	}

	d := time.Since(start)
	log.LogBulk(ctx, len(hosts), total, d, nil)
	n.opts.metricsCollector.RecordBulk(len(hosts), total, d, nil)

	return list, nil
}
