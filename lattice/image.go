package lattice

import (
	"fmt"
	"math"
)

// Image is an integer translation in units of the lattice vectors.
type Image [3]int

// Vec returns the image as a fractional vector.
func (im Image) Vec() Vec {
	return Vec{X: float64(im[0]), Y: float64(im[1]), Z: float64(im[2])}
}

// Neg returns the opposite translation.
func (im Image) Neg() Image { return Image{-im[0], -im[1], -im[2]} }

// Add returns the sum of two translations.
func (im Image) Add(o Image) Image { return Image{im[0] + o[0], im[1] + o[1], im[2] + o[2]} }

// Sub returns the difference of two translations.
func (im Image) Sub(o Image) Image { return Image{im[0] - o[0], im[1] - o[1], im[2] - o[2]} }

// IsZero reports whether im is the identity translation.
func (im Image) IsZero() bool { return im == Image{} }

func (im Image) String() string { return fmt.Sprintf("[%d %d %d]", im[0], im[1], im[2]) }

// SplitFrac splits fractional coordinates f into the wrapped coordinates in
// [0, 1) and the image that moves the wrapped point back onto f.
func SplitFrac(f Vec) (Vec, Image) {
	w := Vec{X: wrap(f.X), Y: wrap(f.Y), Z: wrap(f.Z)}
	return w, Image{
		int(math.Round(f.X - w.X)),
		int(math.Round(f.Y - w.Y)),
		int(math.Round(f.Z - w.Z)),
	}
}

// ImagesInRange enumerates all translations in the inclusive box [lo, hi].
// The first axis varies slowest.
func ImagesInRange(lo, hi Image) []Image {
	size := 1
	for i := range 3 {
		if hi[i] < lo[i] {
			return nil
		}
		size *= hi[i] - lo[i] + 1
	}

	images := make([]Image, 0, size)
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				images = append(images, Image{i, j, k})
			}
		}
	}
	return images
}
