package neighbors

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see package metrics/prometheus for a ready-made implementation.
type MetricsCollector interface {
	// RecordUpdate is called after each Update.
	// count is the number of pairs applied, points the registry size afterwards,
	// duration includes the index rebuild.
	RecordUpdate(count, points int, duration time.Duration, err error)

	// RecordSearch is called after each Search or fully consumed SearchSeq.
	RecordSearch(results int, duration time.Duration, err error)

	// RecordNeighbors is called after each Neighbors or fully consumed NeighborsSeq.
	RecordNeighbors(results int, duration time.Duration, err error)

	// RecordHaloBuild is called when an enlarged periodic index is built.
	// images is the number of point images it holds.
	RecordHaloBuild(images int, duration time.Duration)

	// RecordBulk is called after each NeighborList run.
	RecordBulk(hosts, results int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpdate(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordNeighbors(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordHaloBuild(int, time.Duration)          {}
func (NoopMetricsCollector) RecordBulk(int, int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpdateCount         atomic.Int64
	UpdateErrors        atomic.Int64
	UpdateItems         atomic.Int64
	Points              atomic.Int64
	SearchCount         atomic.Int64
	SearchErrors        atomic.Int64
	SearchResults       atomic.Int64
	SearchTotalNanos    atomic.Int64
	NeighborsCount      atomic.Int64
	NeighborsErrors     atomic.Int64
	NeighborsResults    atomic.Int64
	NeighborsTotalNanos atomic.Int64
	HaloBuildCount      atomic.Int64
	HaloImages          atomic.Int64
	BulkCount           atomic.Int64
	BulkErrors          atomic.Int64
	BulkHosts           atomic.Int64
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(count, points int, duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
		return
	}
	b.UpdateItems.Add(int64(count))
	b.Points.Store(int64(points))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(results int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	b.SearchResults.Add(int64(results))
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordNeighbors implements MetricsCollector.
func (b *BasicMetricsCollector) RecordNeighbors(results int, duration time.Duration, err error) {
	b.NeighborsCount.Add(1)
	b.NeighborsTotalNanos.Add(duration.Nanoseconds())
	b.NeighborsResults.Add(int64(results))
	if err != nil {
		b.NeighborsErrors.Add(1)
	}
}

// RecordHaloBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHaloBuild(images int, duration time.Duration) {
	b.HaloBuildCount.Add(1)
	b.HaloImages.Add(int64(images))
}

// RecordBulk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBulk(hosts, results int, duration time.Duration, err error) {
	b.BulkCount.Add(1)
	b.BulkHosts.Add(int64(hosts))
	if err != nil {
		b.BulkErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpdateCount:       b.UpdateCount.Load(),
		UpdateErrors:      b.UpdateErrors.Load(),
		UpdateItems:       b.UpdateItems.Load(),
		Points:            b.Points.Load(),
		SearchCount:       b.SearchCount.Load(),
		SearchErrors:      b.SearchErrors.Load(),
		SearchResults:     b.SearchResults.Load(),
		SearchAvgNanos:    avgNanos(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		NeighborsCount:    b.NeighborsCount.Load(),
		NeighborsErrors:   b.NeighborsErrors.Load(),
		NeighborsResults:  b.NeighborsResults.Load(),
		NeighborsAvgNanos: avgNanos(b.NeighborsTotalNanos.Load(), b.NeighborsCount.Load()),
		HaloBuildCount:    b.HaloBuildCount.Load(),
		HaloImages:        b.HaloImages.Load(),
		BulkCount:         b.BulkCount.Load(),
		BulkErrors:        b.BulkErrors.Load(),
		BulkHosts:         b.BulkHosts.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpdateCount       int64
	UpdateErrors      int64
	UpdateItems       int64
	Points            int64
	SearchCount       int64
	SearchErrors      int64
	SearchResults     int64
	SearchAvgNanos    int64
	NeighborsCount    int64
	NeighborsErrors   int64
	NeighborsResults  int64
	NeighborsAvgNanos int64
	HaloBuildCount    int64
	HaloImages        int64
	BulkCount         int64
	BulkErrors        int64
	BulkHosts         int64
}
