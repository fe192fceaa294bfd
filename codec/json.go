package codec

import (
	"io"

	gojson "github.com/goccy/go-json"
)

// JSON writes one JSON document per value, followed by a newline.
//
// Encoding and decoding go through github.com/goccy/go-json, which keeps
// large bulk neighbor lists cheap to render.
type JSON struct {
	// Indent pretty-prints nested values with this per-level indent.
	Indent string
}

// Encode writes v to w. HTML characters are not escaped.
func (c JSON) Encode(w io.Writer, v any) error {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if c.Indent != "" {
		enc.SetIndent("", c.Indent)
	}
	return enc.Encode(v)
}

// Decode reads the next JSON document from r into v. Unknown fields are an
// error, so a report read back matches the schema it was written with.
func (JSON) Decode(r io.Reader, v any) error {
	dec := gojson.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (c JSON) Name() string {
	if c.Indent != "" {
		return "json-indent"
	}
	return "json"
}
