// Package prometheus exports neighbor-search metrics to Prometheus.
//
//	c, err := prometheus.New(prom.DefaultRegisterer)
//	nb := neighbors.New[int](neighbors.WithMetricsCollector(c))
//	http.Handle("/metrics", promhttp.Handler())
package prometheus

import (
	"time"

	"github.com/hupe1980/neighbors"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "neighbors"

// Collector implements neighbors.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	results   *prometheus.CounterVec
	points    prometheus.Gauge
	haloSize  prometheus.Histogram
}

var _ neighbors.MetricsCollector = (*Collector)(nil)

// Options configures a Collector.
type Options struct {
	// Namespace prefixes metric names. Defaults to DefaultNamespace.
	Namespace string

	// Buckets are the latency histogram buckets in seconds.
	// Defaults to prometheus.DefBuckets.
	Buckets []float64
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer, optFns ...func(o *Options)) (*Collector, error) {
	opts := Options{
		Namespace: DefaultNamespace,
		Buckets:   prometheus.DefBuckets,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of neighbor-search operations",
			Buckets:   opts.Buckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "operations_total",
			Help:      "Total operations by type and status",
		}, []string{"op", "status"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "results_total",
			Help:      "Total neighbor records returned",
		}, []string{"op"}),
		points: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "points",
			Help:      "Number of registered points after the last update",
		}),
		haloSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "halo_images",
			Help:      "Number of point images per enlarged periodic index",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.ops, c.results, c.points, c.haloSize} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordUpdate implements neighbors.MetricsCollector.
func (c *Collector) RecordUpdate(count, points int, d time.Duration, err error) {
	c.observe("update", d, err)
	if err == nil {
		c.points.Set(float64(points))
	}
}

// RecordSearch implements neighbors.MetricsCollector.
func (c *Collector) RecordSearch(results int, d time.Duration, err error) {
	c.observe("search", d, err)
	c.results.WithLabelValues("search").Add(float64(results))
}

// RecordNeighbors implements neighbors.MetricsCollector.
func (c *Collector) RecordNeighbors(results int, d time.Duration, err error) {
	c.observe("neighbors", d, err)
	c.results.WithLabelValues("neighbors").Add(float64(results))
}

// RecordHaloBuild implements neighbors.MetricsCollector.
func (c *Collector) RecordHaloBuild(images int, d time.Duration) {
	c.observe("halo_build", d, nil)
	c.haloSize.Observe(float64(images))
}

// RecordBulk implements neighbors.MetricsCollector.
func (c *Collector) RecordBulk(hosts, results int, d time.Duration, err error) {
	c.observe("bulk", d, err)
	c.results.WithLabelValues("bulk").Add(float64(results))
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.opLatency.WithLabelValues(op, status).Observe(d.Seconds())
	c.ops.WithLabelValues(op, status).Inc()
}
