// Package conv converts between point counts and the uint32 identifiers
// stored in roaring bitmaps.
//
// Atom indices read from files are untrusted; every conversion is bounds
// checked and fails with ErrOverflow instead of wrapping around.
package conv
