// Package testutil provides testing utilities for neighbor search.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random point clouds and cells, and
// exhaustive reference searches to verify index and engine results.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	pts := rng.UniformPoints(1000, -10, 10) // uniform in a cube
//	pts = rng.PointsInCell(lat, 1000)       // uniform in a unit cell
//
// # Exact Search (Ground Truth)
//
//	matches := testutil.BruteForce(pts, q, r)
//	matches = testutil.BruteForcePeriodic(lat, pts, q, r)
//
// # Comparison
//
//	ok := testutil.SameMatches(got, want, 1e-9)
package testutil
