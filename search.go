package neighbors

import (
	"iter"
	"time"
)

// SearchSeq is the streaming form of Search.
//
// Results are produced while the index is traversed; breaking out of the
// loop stops the search. On invalid input a single error is yielded before
// any result. Every range over the sequence runs the query again against the
// state current at that time.
//
// Example:
//
//	for nb, err := range nh.SearchSeq(p, 3.0) {
//	    if err != nil { return err }
//	    process(nb)
//	}
func (n *Neighborhood[K]) SearchSeq(p Point, radius float64) iter.Seq2[Neighbor[K], error] {
	return func(yield func(Neighbor[K], error) bool) {
		start := time.Now()
		s := n.state.Load()

		q, err := s.queryPoint(p, radius)
		if err != nil {
			n.opts.metricsCollector.RecordSearch(0, time.Since(start), err)
			yield(Neighbor[K]{}, err)
			return
		}

		count := 0
		n.visit(s, q, radius, func(nb Neighbor[K]) bool {
			count++
			return yield(nb, nil)
		})
		n.opts.metricsCollector.RecordSearch(count, time.Since(start), nil)
	}
}

// NeighborsSeq is the streaming form of Neighbors.
func (n *Neighborhood[K]) NeighborsSeq(key K, radius float64) iter.Seq2[Neighbor[K], error] {
	return func(yield func(Neighbor[K], error) bool) {
		start := time.Now()
		s := n.state.Load()

		q, err := s.hostPoint(key, radius)
		if err != nil {
			n.opts.metricsCollector.RecordNeighbors(0, time.Since(start), err)
			yield(Neighbor[K]{}, err)
			return
		}

		count := 0
		n.visitNeighbors(s, key, q, radius, func(nb Neighbor[K]) bool {
			count++
			return yield(nb, nil)
		})
		n.opts.metricsCollector.RecordNeighbors(count, time.Since(start), nil)
	}
}

// Count returns the number of results of Search without materializing them.
func (n *Neighborhood[K]) Count(p Point, radius float64) (int, error) {
	count := 0
	for _, err := range n.SearchSeq(p, radius) {
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
