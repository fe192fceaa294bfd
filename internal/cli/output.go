package cli

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/codec"
	"github.com/hupe1980/neighbors/lattice"
)

// Record is one neighbor in the output.
type Record struct {
	Host     int            `json:"host,omitempty"`
	Node     int            `json:"node"`
	Symbol   string         `json:"symbol,omitempty"`
	Distance float64        `json:"distance"`
	Image    *lattice.Image `json:"image,omitempty"`
}

// Report is the document written by every command.
type Report struct {
	Radius    float64  `json:"radius"`
	Periodic  bool     `json:"periodic"`
	Points    int      `json:"points"`
	Neighbors []Record `json:"neighbors"`
}

func newRecord(host int, nb neighbors.Neighbor[int], symbols []string) Record {
	r := Record{Host: host, Node: nb.Node, Distance: nb.Distance, Image: nb.Image}
	if nb.Node >= 1 && nb.Node <= len(symbols) {
		r.Symbol = symbols[nb.Node-1]
	}
	return r
}

// sortRecords orders records by host, then distance, then node.
func sortRecords(rs []Record) {
	slices.SortFunc(rs, func(a, b Record) int {
		if c := cmp.Compare(a.Host, b.Host); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Node, b.Node)
	})
}

// encode renders r in the named format.
func encode(format string, r Report) ([]byte, error) {
	if format == "text" {
		return encodeText(r), nil
	}

	c, ok := codec.ByName(format)
	if !ok {
		return nil, fmt.Errorf("unknown format %q (want text, %s)", format, strings.Join(codec.Names(), ", "))
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeText(r Report) []byte {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tNODE\tSYMBOL\tDISTANCE\tIMAGE")
	for _, rec := range r.Neighbors {
		image := "-"
		if rec.Image != nil {
			image = rec.Image.String()
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%.6f\t%s\n", rec.Host, rec.Node, rec.Symbol, rec.Distance, image)
	}
	_ = tw.Flush()
	return buf.Bytes()
}
