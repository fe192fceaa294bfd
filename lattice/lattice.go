// Package lattice describes the parallelepiped unit cell of a periodic system.
//
// A Lattice is built from three lattice vectors (the rows of a 3×3 matrix) and
// provides the geometry needed by periodic neighbor search: perpendicular
// face-to-face widths, conversion between Cartesian and fractional
// coordinates, wrapping into the primary cell and enumeration of the integer
// translations (images) that may hold neighbors within a cutoff.
//
//	lat, err := lattice.New([3][3]float64{
//	    {8.607, 0, 0},
//	    {8.646e-4, 4.954, 0},
//	    {-3.143, 0.0138, 6.916},
//	})
//	n := lat.ImageBounds(5.0) // shells needed per axis for a 5 Å cutoff
package lattice

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateLattice is returned when the lattice vectors span (almost) no volume.
var ErrDegenerateLattice = errors.New("degenerate lattice")

// ErrTooManyImages is returned when a cutoff needs more translations than MaxImages.
var ErrTooManyImages = errors.New("too many periodic images")

// MaxImages bounds the number of translations enumerated for one cutoff.
const MaxImages = 1 << 22

// degenerateTolerance is the smallest accepted ratio between the cell volume
// and the product of the lattice vector lengths.
const degenerateTolerance = 1e-12

// Vec is a Cartesian or fractional 3-vector.
type Vec = r3.Vec

// Lattice is an immutable periodic unit cell.
type Lattice struct {
	matrix  [3][3]float64
	vectors [3]Vec
	inverse [3][3]float64
	widths  [3]float64
	volume  float64
}

// New creates a Lattice from a matrix whose rows are the lattice vectors a, b and c.
//
// It returns ErrDegenerateLattice if the vectors are not finite or span a
// vanishing volume.
func New(m [3][3]float64) (*Lattice, error) {
	l := &Lattice{matrix: m}
	for i := range 3 {
		for j := range 3 {
			if math.IsNaN(m[i][j]) || math.IsInf(m[i][j], 0) {
				return nil, fmt.Errorf("%w: non-finite element at (%d, %d)", ErrDegenerateLattice, i, j)
			}
		}
		l.vectors[i] = Vec{X: m[i][0], Y: m[i][1], Z: m[i][2]}
	}

	a, b, c := l.vectors[0], l.vectors[1], l.vectors[2]
	l.volume = math.Abs(r3.Dot(a, r3.Cross(b, c)))

	scale := r3.Norm(a) * r3.Norm(b) * r3.Norm(c)
	if scale == 0 || l.volume <= degenerateTolerance*scale {
		return nil, fmt.Errorf("%w: volume %g", ErrDegenerateLattice, l.volume)
	}

	dense := mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})

	var inv mat.Dense
	if err := inv.Inverse(dense); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegenerateLattice, err)
	}
	for i := range 3 {
		for j := range 3 {
			l.inverse[i][j] = inv.At(i, j)
		}
	}

	// Width along one axis is the volume over the area of the face spanned
	// by the two other vectors.
	l.widths = [3]float64{
		l.volume / r3.Norm(r3.Cross(b, c)),
		l.volume / r3.Norm(r3.Cross(c, a)),
		l.volume / r3.Norm(r3.Cross(a, b)),
	}

	return l, nil
}

// Matrix returns the lattice vectors as matrix rows.
func (l *Lattice) Matrix() [3][3]float64 { return l.matrix }

// Vectors returns the lattice vectors a, b and c.
func (l *Lattice) Vectors() [3]Vec { return l.vectors }

// Volume returns the cell volume.
func (l *Lattice) Volume() float64 { return l.volume }

// Widths returns the perpendicular distances between opposite cell faces.
func (l *Lattice) Widths() [3]float64 { return l.widths }

// Lengths returns the lengths of the lattice vectors.
func (l *Lattice) Lengths() [3]float64 {
	return [3]float64{r3.Norm(l.vectors[0]), r3.Norm(l.vectors[1]), r3.Norm(l.vectors[2])}
}

// ToFrac converts a Cartesian vector into fractional coordinates.
func (l *Lattice) ToFrac(p Vec) Vec {
	inv := &l.inverse
	return Vec{
		X: p.X*inv[0][0] + p.Y*inv[1][0] + p.Z*inv[2][0],
		Y: p.X*inv[0][1] + p.Y*inv[1][1] + p.Z*inv[2][1],
		Z: p.X*inv[0][2] + p.Y*inv[1][2] + p.Z*inv[2][2],
	}
}

// ToCart converts fractional coordinates into a Cartesian vector.
func (l *Lattice) ToCart(f Vec) Vec {
	v := l.vectors
	return r3.Add(r3.Add(r3.Scale(f.X, v[0]), r3.Scale(f.Y, v[1])), r3.Scale(f.Z, v[2]))
}

// WrapFrac wraps fractional coordinates into [0, 1) per axis.
func (l *Lattice) WrapFrac(f Vec) Vec {
	return Vec{X: wrap(f.X), Y: wrap(f.Y), Z: wrap(f.Z)}
}

// Displacement returns the Cartesian displacement of an image.
func (l *Lattice) Displacement(im Image) Vec {
	return l.ToCart(im.Vec())
}

// Translate moves a Cartesian point by an image.
func (l *Lattice) Translate(p Vec, im Image) Vec {
	return r3.Add(p, l.Displacement(im))
}

// ImageBounds returns the number of image shells per axis, ceil(cutoff / width),
// needed to reach every periodic copy within cutoff of a point in the cell.
// Counts saturate at MaxImages.
func (l *Lattice) ImageBounds(cutoff float64) [3]int {
	var n [3]int
	for i, w := range l.widths {
		n[i] = int(math.Min(math.Ceil(cutoff/w), MaxImages))
	}
	return n
}

// CheckCutoff returns ErrTooManyImages when the translation box for cutoff
// exceeds MaxImages. spread is the fractional extent, max minus min per axis,
// of the points the box has to cover; it is zero for points in one cell.
func (l *Lattice) CheckCutoff(cutoff float64, spread [3]float64) error {
	count := 1.0
	for i, w := range l.widths {
		// Covers both the mirrored box and the halo shifts floor(-rc)..ceil(1+rc).
		count *= spread[i] + 2*cutoff/w + 4
	}
	if count > MaxImages || math.IsNaN(count) {
		return fmt.Errorf("%w: cutoff %g needs about %.3g translations", ErrTooManyImages, cutoff, count)
	}
	return nil
}

// Images enumerates all translations with |t_i| <= n_i, including the zero image.
func (l *Lattice) Images(n [3]int) []Image {
	return ImagesInRange(Image{-n[0], -n[1], -n[2]}, Image{n[0], n[1], n[2]})
}

func wrap(x float64) float64 {
	w := x - math.Floor(x)
	// x slightly below an integer can round up to exactly 1.
	if w >= 1 || w == 0 {
		return 0
	}
	return w
}
