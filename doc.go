// Package neighbors answers fixed-radius neighbor queries over keyed 3D
// points, with optional periodic boundary conditions.
//
// A Neighborhood holds a set of points identified by caller keys and a
// spatial index over them. It answers two questions: which points lie within
// a radius of an arbitrary location (Search), and which points lie within a
// radius of a registered point (Neighbors). When a lattice is set, every
// point stands for its infinite set of periodic images and results report
// which image was found.
//
// # Quick Start
//
//	nh := neighbors.New[int]()
//	_ = nh.Update(
//	    neighbors.Entry[int]{Key: 1, Point: neighbors.Point{0, 0, 0}},
//	    neighbors.Entry[int]{Key: 2, Point: neighbors.Point{1.1, 0, 0}},
//	)
//	nbs, _ := nh.Neighbors(1, 1.6) // [{Node: 2, Distance: 1.1}]
//
// # Periodic Systems
//
// SetLattice takes the cell vectors as matrix rows. Neighbors then carry the
// lattice translation of the found image:
//
//	_ = nh.SetLattice([3][3]float64{{4, 0, 0}, {0, 4, 0}, {0, 0, 4}})
//	for _, nb := range nbs {
//	    d := nh.Lattice().Displacement(*nb.Image)
//	    _ = d // stored position of nb.Node + d is the neighbor
//	}
//
// The radius may exceed the cell size. In that case a point can be its own
// neighbor through a non-zero image, and Neighbors keeps those entries.
//
// Two strategies search the images (see WithPeriodicStrategy):
//   - StrategyMirror: query the base index once per candidate translation (default)
//   - StrategyHalo: query one enlarged index per radius, cached per point set
//
// # Updates
//
// Update inserts or moves points and rebuilds the index. Each write publishes
// a new immutable snapshot, so queries run lock-free and concurrently with
// writers. Queries issued before the first Update fail with ErrIndexNotReady.
//
// # Bulk Queries
//
// NeighborList computes the neighbors of many hosts in parallel against a
// single snapshot, bounded by a worker count and an optional
// resource.Controller:
//
//	list, err := nh.NeighborList(ctx, 3.0, func(o *neighbors.BulkOptions[int]) {
//	    o.Workers = 8
//	})
//
// # Observability
//
// WithLogger enables structured logging through log/slog and
// WithMetricsCollector plugs in a MetricsCollector. The metrics/prometheus
// package provides a Prometheus implementation.
package neighbors
