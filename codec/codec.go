// Package codec encodes neighbor reports for output and compresses the
// resulting streams.
//
// Codecs are selected by name ("json", "json-indent"); compression is
// selected by name or by file suffix (".zst", ".lz4").
package codec

import (
	"io"
	"maps"
	"slices"
)

// Codec streams values to and from a wire format.
// Implementations must be safe for concurrent use.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	Name() string
}

var codecs = map[string]Codec{
	"json":        JSON{},
	"json-indent": JSON{Indent: "  "},
}

// ByName returns a built-in codec by its name.
func ByName(name string) (Codec, bool) {
	c, ok := codecs[name]
	return c, ok
}

// Names returns the names accepted by ByName in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(codecs))
}
