package neighbors

import (
	"log/slog"

	"github.com/hupe1980/neighbors/spatial"
)

const (
	// DefaultSelfEpsilon is the distance below which a query host's own
	// entry is dropped from Neighbors results.
	DefaultSelfEpsilon = 1e-6

	// DefaultHaloCacheSize is the number of enlarged periodic indexes kept
	// per point set when StrategyHalo is active.
	DefaultHaloCacheSize = 4
)

type options struct {
	bucketSize       int
	backend          spatial.Backend
	strategy         Strategy
	selfEpsilon      float64
	haloCacheSize    int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Neighborhood.
type Option func(*options)

// WithBucketSize sets the maximum number of points per octree leaf.
// It only affects performance. Values < 1 select spatial.DefaultBucketSize.
func WithBucketSize(n int) Option {
	return func(o *options) {
		o.bucketSize = n
	}
}

// WithBackend selects the spatial index implementation.
func WithBackend(b spatial.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithPeriodicStrategy selects how periodic images are searched.
//
// StrategyMirror (default) queries the base index once per lattice
// translation. StrategyHalo builds, per radius, one enlarged index over the
// images near the unit cell and answers every query with a single lookup,
// which pays off when many hosts are queried with the same radius.
// Both produce the same neighbor multiset.
func WithPeriodicStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithSelfEpsilon sets the distance below which Neighbors drops the host's
// own entry. Entries of the host at larger distances (periodic
// self-images) are always kept.
func WithSelfEpsilon(eps float64) Option {
	return func(o *options) {
		o.selfEpsilon = eps
	}
}

// WithHaloCacheSize sets how many enlarged halo indexes (one per distinct
// radius) are retained. Values < 1 select DefaultHaloCacheSize.
func WithHaloCacheSize(n int) Option {
	return func(o *options) {
		o.haloCacheSize = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &neighbors.BasicMetricsCollector{}
//	nb := neighbors.New[int](neighbors.WithMetricsCollector(metrics))
//	// ... use nb ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := neighbors.NewJSONLogger(slog.LevelInfo)
//	nb := neighbors.New[int](neighbors.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		bucketSize:    spatial.DefaultBucketSize,
		backend:       spatial.BackendOctree,
		strategy:      StrategyMirror,
		selfEpsilon:   DefaultSelfEpsilon,
		haloCacheSize: DefaultHaloCacheSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.haloCacheSize < 1 {
		o.haloCacheSize = DefaultHaloCacheSize
	}
	return o
}
