package neighbors

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/neighbors/internal/registry"
	"github.com/hupe1980/neighbors/lattice"
)

var (
	// ErrUnknownKey is returned when a key has never been registered.
	ErrUnknownKey = registry.ErrUnknownKey

	// ErrIndexNotReady is returned by queries issued before the first Update.
	ErrIndexNotReady = errors.New("index not ready: no update has been applied")

	// ErrDegenerateLattice is returned by SetLattice for singular cells.
	ErrDegenerateLattice = lattice.ErrDegenerateLattice

	// ErrInvalidRadius is returned for negative or non-finite radii.
	ErrInvalidRadius = errors.New("invalid radius")

	// ErrTooManyImages is returned for periodic queries whose radius needs
	// more than lattice.MaxImages translations.
	ErrTooManyImages = lattice.ErrTooManyImages

	// ErrInvalidPoint is returned for coordinates that are not finite.
	ErrInvalidPoint = errors.New("invalid point")
)

// UnknownKeyError reports the key a query was issued for.
//
// It matches ErrUnknownKey with errors.Is.
type UnknownKeyError[K comparable] struct {
	Key K
}

func (e *UnknownKeyError[K]) Error() string {
	return fmt.Sprintf("unknown key: %v", e.Key)
}

func (e *UnknownKeyError[K]) Unwrap() error { return ErrUnknownKey }

// InvalidRadiusError indicates a radius that is negative, NaN or infinite.
type InvalidRadiusError struct {
	Radius float64
}

func (e *InvalidRadiusError) Error() string {
	return fmt.Sprintf("invalid radius: %g", e.Radius)
}

func (e *InvalidRadiusError) Unwrap() error { return ErrInvalidRadius }

// InvalidPointError indicates a coordinate that is NaN or infinite.
// Key is the zero value for query points.
type InvalidPointError[K comparable] struct {
	Key   K
	Point Point
}

func (e *InvalidPointError[K]) Error() string {
	return fmt.Sprintf("invalid point for key %v: %v", e.Key, e.Point)
}

func (e *InvalidPointError[K]) Unwrap() error { return ErrInvalidPoint }

func validateRadius(r float64) error {
	if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return &InvalidRadiusError{Radius: r}
	}
	return nil
}

func isFinite(p Point) bool {
	for _, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
