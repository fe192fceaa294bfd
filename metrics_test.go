package neighbors

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicMetricsCollector(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	nh := New[int](WithMetricsCollector(metrics))

	_, err := nh.Search(Point{}, 1)
	require.ErrorIs(t, err, ErrIndexNotReady)

	require.NoError(t, nh.Update(keyedFrom1(moleculePoints)...))
	require.Error(t, nh.Update(Entry[int]{Key: 1, Point: Point{0, 0, math.Inf(1)}}))

	nbs, err := nh.Neighbors(8, 1.6)
	require.NoError(t, err)
	_, err = nh.Neighbors(100, 1.6)
	require.Error(t, err)

	hits, err := nh.Search(moleculePoints[0], 2.0)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.UpdateCount)
	assert.Equal(t, int64(1), stats.UpdateErrors)
	assert.Equal(t, int64(26), stats.UpdateItems)
	assert.Equal(t, int64(26), stats.Points)
	assert.Equal(t, int64(2), stats.NeighborsCount)
	assert.Equal(t, int64(1), stats.NeighborsErrors)
	assert.Equal(t, int64(len(nbs)), stats.NeighborsResults)
	assert.Equal(t, int64(2), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchErrors)
	assert.Equal(t, int64(len(hits)), stats.SearchResults)
	assert.GreaterOrEqual(t, stats.SearchAvgNanos, int64(0))
}

func TestNoopMetricsCollector(t *testing.T) {
	var mc MetricsCollector = NoopMetricsCollector{}
	assert.NotPanics(t, func() {
		mc.RecordUpdate(1, 1, 0, nil)
		mc.RecordSearch(1, 0, nil)
		mc.RecordNeighbors(1, 0, nil)
		mc.RecordHaloBuild(1, 0)
		mc.RecordBulk(1, 1, 0, nil)
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	nh := New[int](WithLogger(logger), WithPeriodicStrategy(StrategyHalo))
	require.NoError(t, nh.Update(keyedFrom1(triclinicPoints)...))
	require.NoError(t, nh.SetLattice(triclinicCell))
	_, err := nh.Neighbors(1, 2.0)
	require.NoError(t, err)
	nh.ClearLattice()

	out := buf.String()
	assert.Contains(t, out, `"msg":"index rebuilt"`)
	assert.Contains(t, out, `"points":18`)
	assert.Contains(t, out, `"backend":"octree"`)
	assert.Contains(t, out, `"msg":"lattice set"`)
	assert.Contains(t, out, `"msg":"halo index built"`)
	assert.Contains(t, out, `"msg":"lattice cleared"`)

	buf.Reset()
	require.Error(t, nh.SetLattice([3][3]float64{}))
	assert.Contains(t, buf.String(), `"msg":"set lattice failed"`)
}

func TestLoggerWithRadius(t *testing.T) {
	var buf bytes.Buffer
	nh := New[int](WithLogger(NewLogger(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, nh.Update(keyedFrom1(triclinicPoints)...))

	_, err := nh.NeighborList(context.Background(), 1.5)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "radius=1.5")
	assert.Contains(t, buf.String(), `msg="neighbor list completed"`)
	assert.Contains(t, buf.String(), "hosts=18")

	buf.Reset()
	_, err = nh.NeighborList(context.Background(), -1)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "radius=-1")
	assert.Contains(t, buf.String(), `msg="neighbor list failed"`)

	assert.NotPanics(t, func() { NoopLogger().Error("dropped") })
}
