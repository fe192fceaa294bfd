package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNeighbor struct {
	Node     int     `json:"node"`
	Distance float64 `json:"distance"`
	Image    *[3]int `json:"image,omitempty"`
}

func TestCodecs(t *testing.T) {
	in := map[string][]testNeighbor{
		"0": {{Node: 6, Distance: 1.637, Image: &[3]int{0, 0, 0}}, {Node: 13, Distance: 1.64, Image: &[3]int{-1, 0, -1}}},
		"1": {},
	}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, in))
			assert.True(t, strings.HasSuffix(buf.String(), "\n"))

			var out map[string][]testNeighbor
			require.NoError(t, c.Decode(&buf, &out))
			assert.Equal(t, in, out)
		})
	}

	_, ok := ByName("gob")
	assert.False(t, ok)
	assert.Equal(t, []string{"json", "json-indent"}, Names())
}

func TestJSONIndent(t *testing.T) {
	v := testNeighbor{Node: 1, Distance: 0.5, Image: &[3]int{1, 0, 0}}

	var compact, indented bytes.Buffer
	require.NoError(t, JSON{}.Encode(&compact, v))
	require.NoError(t, JSON{Indent: "  "}.Encode(&indented, v))

	assert.Equal(t, 1, strings.Count(compact.String(), "\n"))
	assert.Contains(t, indented.String(), "\n  \"node\": 1,")
	assert.JSONEq(t, compact.String(), indented.String())
}

func TestJSONEscaping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON{}.Encode(&buf, map[string]string{"symbol": "<H>"}))
	assert.Equal(t, "{\"symbol\":\"<H>\"}\n", buf.String())
}

func TestJSONDecodeUnknownField(t *testing.T) {
	var out testNeighbor
	err := JSON{}.Decode(strings.NewReader(`{"node":1,"distance":2,"weight":3}`), &out)
	assert.Error(t, err)
}

func TestCompression(t *testing.T) {
	payload := []byte(strings.Repeat(`{"node":7,"distance":1.635,"image":[0,1,0]}`, 500))

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, c)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if c != CompressionNone {
				assert.Less(t, buf.Len(), len(payload))
			}

			r, err := NewReader(&buf, c)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestCompressionNames(t *testing.T) {
	assert.Equal(t, CompressionZSTD, CompressionForPath("out/list.json.zst"))
	assert.Equal(t, CompressionLZ4, CompressionForPath("list.LZ4"))
	assert.Equal(t, CompressionNone, CompressionForPath("list.json"))

	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}

func BenchmarkEncode(b *testing.B) {
	list := make([]testNeighbor, 1000)
	for i := range list {
		list[i] = testNeighbor{Node: i, Distance: float64(i) / 7, Image: &[3]int{i % 3, -1, 0}}
	}

	for _, name := range Names() {
		c, _ := ByName(name)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if err := c.Encode(io.Discard, list); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
