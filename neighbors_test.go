package neighbors

import (
	"errors"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/hupe1980/neighbors/lattice"
	"github.com/hupe1980/neighbors/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Atoms of a small organic molecule, keyed from 1.
var moleculePoints = []Point{
	{-1.5365e+00, 2.4770e-01, 0.0000e+00},
	{-4.1670e-01, 2.4770e-01, 0.0000e+00},
	{-1.8828e+00, 1.3126e+00, 0.0000e+00},
	{-2.0532e+00, -4.6390e-01, 1.2468e+00},
	{-1.6724e+00, 6.0500e-02, 2.1630e+00},
	{-2.0535e+00, -4.6410e-01, -1.2466e+00},
	{-1.6729e+00, 6.0100e-02, -2.1629e+00},
	{-1.5637e+00, -1.9090e+00, -1.2451e+00},
	{-4.4420e-01, -1.9302e+00, -1.2577e+00},
	{-1.9302e+00, -2.4348e+00, -2.1634e+00},
	{-1.5634e+00, -1.9089e+00, 1.2454e+00},
	{-1.9296e+00, -2.4345e+00, 2.1638e+00},
	{-4.4390e-01, -1.9300e+00, 1.2576e+00},
	{-2.0803e+00, -2.6231e+00, 3.0000e-04},
	{-1.7195e+00, -3.6858e+00, 3.0000e-04},
	{-3.6059e+00, -2.6024e+00, 4.0000e-04},
	{-3.9927e+00, -3.1350e+00, -9.0540e-01},
	{-3.9924e+00, -3.1349e+00, 9.0650e-01},
	{-3.5788e+00, -4.4570e-01, 1.2456e+00},
	{-3.9456e+00, 6.1220e-01, 1.2580e+00},
	{-3.9650e+00, -9.5680e-01, 2.1640e+00},
	{-3.5791e+00, -4.4580e-01, -1.2449e+00},
	{-3.9458e+00, 6.1220e-01, -1.2572e+00},
	{-3.9656e+00, -9.5680e-01, -2.1632e+00},
	{-4.0980e+00, -1.1582e+00, 4.0000e-04},
	{-5.2201e+00, -1.1442e+00, 6.0000e-04},
}

// Particles in a triclinic cell, keyed from 1.
var (
	triclinicPoints = []Point{
		{0.60421912, 4.2840792, 0.67433509},
		{-0.69258171, 3.9731936, 3.49208748},
		{0.32811792, 4.34729737, 6.48343793},
		{4.88477572, 1.81537674, 6.26972558},
		{6.14499816, 1.48505734, 3.37312786},
		{5.12754047, 1.85762907, 0.43572421},
		{2.09507387, 3.66872721, 0.39353504},
		{0.5848138, 0.91854645, 0.28564143},
		{0.33364169, 4.10698461, 2.26790994},
		{-1.14582521, 2.41879964, 3.57784907},
		{0.06571752, 4.4286596, 4.80486228},
		{3.78132323, 0.96146537, 0.19503846},
		{3.29078661, 1.21859679, 6.60654731},
		{4.93953611, 3.49170736, 6.71444093},
		{5.15070623, 1.63464631, 4.60290757},
		{6.60903043, 4.89706872, 3.2209702},
		{5.36681478, 1.95057166, 2.05143108},
		{1.73241622, 3.38087446, 6.78291188},
	}
	triclinicCell = [3][3]float64{
		{8.60700000e+00, 0.00000000e+00, 0.00000000e+00},
		{8.64636107e-04, 4.95399992e+00, 0.00000000e+00},
		{-3.14318359e+00, 1.38078488e-02, 6.91625732e+00},
	}
)

// A carbon chain along z in a cell that is short in x and y.
func chain() ([]Point, [3][3]float64) {
	const a = 2.4881
	const h = a / 2
	points := []Point{
		{0, 0, 5}, {h, h, 6}, {h, h, 7.5}, {h, h, 3}, {0, 0, 9},
		{h, h, 10.5}, {0, 0, 12}, {h, h, 13.5}, {0, 0, 15}, {h, h, 16.5},
	}
	cell := [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, 35.1872}}
	return points, cell
}

func keyedFrom1(points []Point) []Entry[int] {
	entries := make([]Entry[int], len(points))
	for i, p := range points {
		entries[i] = Entry[int]{Key: i + 1, Point: p}
	}
	return entries
}

func nodes[K comparable](nbs []Neighbor[K]) []K {
	out := make([]K, len(nbs))
	for i, nb := range nbs {
		out[i] = nb.Node
	}
	return out
}

func sortedNodes(nbs []Neighbor[int]) []int {
	out := nodes(nbs)
	sort.Ints(out)
	return out
}

func strategies() map[string]Option {
	return map[string]Option{
		"Mirror": WithPeriodicStrategy(StrategyMirror),
		"Halo":   WithPeriodicStrategy(StrategyHalo),
	}
}

func TestUpdate(t *testing.T) {
	for _, backend := range []spatial.Backend{spatial.BackendOctree, spatial.BackendKDTree} {
		t.Run(backend.String(), func(t *testing.T) {
			nh := New[int](WithBackend(backend))
			require.NoError(t, nh.Update(keyedFrom1(moleculePoints)...))
			assert.Equal(t, 26, nh.NPoints())

			nbs, err := nh.Neighbors(8, 1.5)
			require.NoError(t, err)
			assert.Len(t, nbs, 2)

			nbs, err = nh.Neighbors(8, 1.6)
			require.NoError(t, err)
			assert.Len(t, nbs, 4)

			// Moving 9 puts it 2.05 away from 8.
			p9 := Point{0.4858028, -1.9478115, -1.2681672}
			require.NoError(t, nh.Update(Entry[int]{Key: 9, Point: p9}))
			assert.Equal(t, 26, nh.NPoints())

			nbs, err = nh.Neighbors(8, 1.5)
			require.NoError(t, err)
			assert.Len(t, nbs, 1)

			nbs, err = nh.Neighbors(8, 1.6)
			require.NoError(t, err)
			assert.Len(t, nbs, 3)

			nbs, err = nh.Search(p9, 2.0)
			require.NoError(t, err)
			assert.Equal(t, []int{9}, sortedNodes(nbs))

			nbs, err = nh.Search(p9, 2.2)
			require.NoError(t, err)
			assert.Equal(t, []int{8, 9}, sortedNodes(nbs))
		})
	}
}

func TestUpdateSemantics(t *testing.T) {
	t.Run("KeysKeepPosition", func(t *testing.T) {
		nh := New[string]()
		require.NoError(t, nh.Update(
			Entry[string]{Key: "a", Point: Point{0, 0, 0}},
			Entry[string]{Key: "b", Point: Point{1, 0, 0}},
		))
		require.NoError(t, nh.Update(
			Entry[string]{Key: "c", Point: Point{2, 0, 0}},
			Entry[string]{Key: "a", Point: Point{5, 0, 0}},
		))

		assert.Equal(t, []string{"a", "b", "c"}, nh.Keys())

		p, ok := nh.Position("a")
		require.True(t, ok)
		assert.Equal(t, Point{5, 0, 0}, p)

		p, ok = nh.Position("b")
		require.True(t, ok)
		assert.Equal(t, Point{1, 0, 0}, p)

		_, ok = nh.Position("z")
		assert.False(t, ok)
	})

	t.Run("LastEntryWins", func(t *testing.T) {
		nh := New[int]()
		require.NoError(t, nh.Update(
			Entry[int]{Key: 1, Point: Point{0, 0, 0}},
			Entry[int]{Key: 1, Point: Point{3, 0, 0}},
		))
		assert.Equal(t, 1, nh.NPoints())

		p, _ := nh.Position(1)
		assert.Equal(t, Point{3, 0, 0}, p)
	})

	t.Run("Idempotent", func(t *testing.T) {
		nh := New[int]()
		require.NoError(t, nh.Update(keyedFrom1(moleculePoints)...))
		before, err := nh.Neighbors(5, 2.0)
		require.NoError(t, err)

		require.NoError(t, nh.Update(keyedFrom1(moleculePoints)...))
		after, err := nh.Neighbors(5, 2.0)
		require.NoError(t, err)

		assert.Equal(t, 26, nh.NPoints())
		assert.Equal(t, sortedNodes(before), sortedNodes(after))
	})

	t.Run("EmptyUpdateMakesReady", func(t *testing.T) {
		nh := New[int]()
		_, err := nh.Search(Point{}, 1)
		require.ErrorIs(t, err, ErrIndexNotReady)

		require.NoError(t, nh.Update())
		nbs, err := nh.Search(Point{}, 1)
		require.NoError(t, err)
		assert.Empty(t, nbs)
	})

	t.Run("InvalidPointIsAtomic", func(t *testing.T) {
		nh := New[int]()
		require.NoError(t, nh.Update(Entry[int]{Key: 1, Point: Point{0, 0, 0}}))

		err := nh.Update(
			Entry[int]{Key: 2, Point: Point{1, 0, 0}},
			Entry[int]{Key: 3, Point: Point{math.NaN(), 0, 0}},
		)
		require.ErrorIs(t, err, ErrInvalidPoint)

		var pe *InvalidPointError[int]
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 3, pe.Key)

		assert.Equal(t, 1, nh.NPoints())
		_, ok := nh.Position(2)
		assert.False(t, ok)

		err = nh.Update(Entry[int]{Key: 1, Point: Point{0, math.Inf(1), 0}})
		require.ErrorIs(t, err, ErrInvalidPoint)
	})

	t.Run("UpdateSeq", func(t *testing.T) {
		nh := New[int]()
		points := map[int]Point{1: {0, 0, 0}, 2: {1, 0, 0}, 3: {0, 1, 0}}
		require.NoError(t, nh.UpdateSeq(maps.All(points)))
		assert.Equal(t, 3, nh.NPoints())

		keys := nh.Keys()
		slices.Sort(keys)
		assert.Equal(t, []int{1, 2, 3}, keys)
	})
}

func TestSearch(t *testing.T) {
	nh := New[int]()
	require.NoError(t, nh.Update(
		Entry[int]{Key: 1, Point: Point{0, 0, 0}},
		Entry[int]{Key: 2, Point: Point{1, 0, 0}},
		Entry[int]{Key: 3, Point: Point{0, 2, 0}},
	))

	t.Run("Inclusive", func(t *testing.T) {
		nbs, err := nh.Search(Point{0, 0, 0}, 1.0)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, sortedNodes(nbs))
	})

	t.Run("KeepsCoincidentPoint", func(t *testing.T) {
		nbs, err := nh.Search(Point{1, 0, 0}, 0)
		require.NoError(t, err)
		require.Len(t, nbs, 1)
		assert.Equal(t, 2, nbs[0].Node)
		assert.Zero(t, nbs[0].Distance)
		assert.Nil(t, nbs[0].Image)
	})

	t.Run("Distances", func(t *testing.T) {
		nbs, err := nh.Search(Point{0, 1, 0}, 1.5)
		require.NoError(t, err)
		for _, nb := range nbs {
			p, _ := nh.Position(nb.Node)
			want := math.Sqrt(p[0]*p[0] + (p[1]-1)*(p[1]-1) + p[2]*p[2])
			assert.InDelta(t, want, nb.Distance, 1e-12)
		}
		assert.Equal(t, []int{1, 2, 3}, sortedNodes(nbs))
	})

	t.Run("Monotonic", func(t *testing.T) {
		prev := 0
		for _, r := range []float64{0, 0.5, 1, 1.5, 2, 2.5, 10} {
			n, err := nh.Count(Point{0.1, 0.1, 0}, r)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, prev)
			prev = n
		}
		assert.Equal(t, 3, prev)
	})
}

func TestNeighbors(t *testing.T) {
	t.Run("Symmetric", func(t *testing.T) {
		nh := New[int]()
		require.NoError(t, nh.Update(keyedFrom1(moleculePoints)...))

		for _, key := range nh.Keys() {
			nbs, err := nh.Neighbors(key, 1.6)
			require.NoError(t, err)
			for _, nb := range nbs {
				back, err := nh.Neighbors(nb.Node, 1.6)
				require.NoError(t, err)
				assert.Contains(t, nodes(back), key)
			}
		}
	})

	t.Run("CoincidentOtherKeyKept", func(t *testing.T) {
		nh := New[int]()
		require.NoError(t, nh.Update(
			Entry[int]{Key: 1, Point: Point{0, 0, 0}},
			Entry[int]{Key: 2, Point: Point{0, 0, 0}},
		))

		nbs, err := nh.Neighbors(1, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, nodes(nbs))
	})

	t.Run("SelfEpsilon", func(t *testing.T) {
		nh := New[int](WithSelfEpsilon(0))
		require.NoError(t, nh.Update(Entry[int]{Key: 1, Point: Point{0, 0, 0}}))

		nbs, err := nh.Neighbors(1, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, nodes(nbs))
	})
}

func TestErrors(t *testing.T) {
	t.Run("NotReady", func(t *testing.T) {
		nh := New[int]()
		_, err := nh.Search(Point{}, 1)
		assert.ErrorIs(t, err, ErrIndexNotReady)
		_, err = nh.Neighbors(1, 1)
		assert.ErrorIs(t, err, ErrIndexNotReady)
		_, err = nh.Count(Point{}, 1)
		assert.ErrorIs(t, err, ErrIndexNotReady)
	})

	nh := New[int]()
	require.NoError(t, nh.Update(Entry[int]{Key: 1, Point: Point{0, 0, 0}}))

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := nh.Neighbors(42, 1)
		require.ErrorIs(t, err, ErrUnknownKey)

		var ke *UnknownKeyError[int]
		require.True(t, errors.As(err, &ke))
		assert.Equal(t, 42, ke.Key)
	})

	t.Run("InvalidRadius", func(t *testing.T) {
		for _, r := range []float64{-1, math.NaN(), math.Inf(1)} {
			_, err := nh.Search(Point{}, r)
			assert.ErrorIs(t, err, ErrInvalidRadius)
			_, err = nh.Neighbors(1, r)
			assert.ErrorIs(t, err, ErrInvalidRadius)
		}
	})

	t.Run("InvalidQueryPoint", func(t *testing.T) {
		_, err := nh.Search(Point{math.NaN(), 0, 0}, 1)
		assert.ErrorIs(t, err, ErrInvalidPoint)
	})

	t.Run("DegenerateLattice", func(t *testing.T) {
		err := nh.SetLattice([3][3]float64{{1, 0, 0}, {2, 0, 0}, {0, 0, 1}})
		require.ErrorIs(t, err, ErrDegenerateLattice)
		assert.Equal(t, ModeAperiodic, nh.Mode())
		assert.Nil(t, nh.Lattice())
	})
}

func TestMode(t *testing.T) {
	nh := New[int]()
	assert.Equal(t, ModeAperiodic, nh.Mode())
	assert.False(t, nh.Periodic())

	// A lattice may be set before any point exists.
	require.NoError(t, nh.SetLattice(triclinicCell))
	assert.Equal(t, ModePeriodic, nh.Mode())
	assert.True(t, nh.Periodic())
	assert.Equal(t, triclinicCell, nh.Lattice().Matrix())

	require.NoError(t, nh.Update(keyedFrom1(triclinicPoints)...))
	nbs, err := nh.Neighbors(1, 1.8)
	require.NoError(t, err)
	assert.Len(t, nbs, 4)
	for _, nb := range nbs {
		assert.NotNil(t, nb.Image)
	}

	nh.ClearLattice()
	assert.Equal(t, ModeAperiodic, nh.Mode())
	nbs, err = nh.Neighbors(1, 1.8)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 9}, sortedNodes(nbs))
	for _, nb := range nbs {
		assert.Nil(t, nb.Image)
	}

	nh.Reset()
	assert.Zero(t, nh.NPoints())
	assert.Nil(t, nh.Keys())
	assert.Equal(t, ModeAperiodic, nh.Mode())
	_, err = nh.Neighbors(1, 1.8)
	assert.ErrorIs(t, err, ErrIndexNotReady)

	assert.Equal(t, "periodic", ModePeriodic.String())
	assert.Equal(t, "aperiodic", ModeAperiodic.String())
}

func TestConcurrentQueriesDuringUpdates(t *testing.T) {
	nh := New[int]()
	require.NoError(t, nh.Update(keyedFrom1(moleculePoints)...))

	var wg sync.WaitGroup
	errs := make(chan error, 64)

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				key := i%26 + 1
				nbs, err := nh.Neighbors(key, 1.6)
				if err != nil {
					errs <- err
					return
				}
				// Every snapshot holds all 26 points, so each atom has a bonded neighbor.
				if len(nbs) == 0 {
					errs <- errors.New("no neighbors")
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 50 {
			p := moleculePoints[8]
			p[0] += float64(i%2) * 0.01
			if err := nh.Update(Entry[int]{Key: 9, Point: p}); err != nil {
				errs <- err
				return
			}
			if i%10 == 0 {
				if err := nh.SetLattice([3][3]float64{{30, 0, 0}, {0, 30, 0}, {0, 0, 30}}); err != nil {
					errs <- err
					return
				}
				nh.ClearLattice()
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 26, nh.NPoints())
}

func TestNeighborImageDisplacement(t *testing.T) {
	// The documented relation between a neighbor and its image.
	nh := New[int]()
	require.NoError(t, nh.Update(keyedFrom1(triclinicPoints)...))
	require.NoError(t, nh.SetLattice(triclinicCell))

	host, _ := nh.Position(1)
	nbs, err := nh.Neighbors(1, 5.0)
	require.NoError(t, err)
	require.NotEmpty(t, nbs)

	lat := nh.Lattice()
	for _, nb := range nbs {
		p, _ := nh.Position(nb.Node)
		img := lat.Translate(toVec(p), *nb.Image)
		d := lattice.Vec{X: img.X - host[0], Y: img.Y - host[1], Z: img.Z - host[2]}
		assert.InDelta(t, math.Sqrt(d.X*d.X+d.Y*d.Y+d.Z*d.Z), nb.Distance, 1e-9)
	}
}
