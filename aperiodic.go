package neighbors

import "github.com/hupe1980/neighbors/spatial"

// visitAperiodic reports every stored point within radius of q.
// Positions come from the index built over s.reg, so they are always valid.
func (s *snapshot[K]) visitAperiodic(q spatial.Vec, radius float64, yield func(Neighbor[K]) bool) {
	keys := s.reg.Keys()
	for _, h := range s.index.Query(q, radius) {
		if !yield(Neighbor[K]{Node: keys[h.Position], Distance: h.Distance}) {
			return
		}
	}
}
