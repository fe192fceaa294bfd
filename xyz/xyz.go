// Package xyz reads and writes point sets in the XYZ text format.
//
// A frame is a count line, a comment line and one "symbol x y z" row per
// point. Extra columns after z are ignored. The comment may carry an
// extended-XYZ cell, Lattice="ax ay az bx by bz cx cy cz", whose nine
// numbers are the lattice vectors a, b and c.
package xyz

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrFormat is returned for malformed input.
var ErrFormat = errors.New("xyz: malformed input")

const maxPrealloc = 1 << 16

// Frame is a single XYZ record.
type Frame struct {
	Comment string
	Symbols []string
	Points  [][3]float64

	// Cell holds the lattice vectors as rows, or nil when the comment has none.
	Cell *[3][3]float64
}

// Len returns the number of points.
func (f *Frame) Len() int { return len(f.Points) }

// Read parses the first frame from r.
func Read(r io.Reader) (*Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return sc.Text(), true
	}

	head, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: line 1: invalid atom count %q", ErrFormat, head)
	}

	comment, ok := next()
	if !ok {
		return nil, fmt.Errorf("%w: missing comment line", ErrFormat)
	}

	// The count is untrusted until the rows arrive.
	hint := min(n, maxPrealloc)
	f := &Frame{
		Comment: comment,
		Symbols: make([]string, 0, hint),
		Points:  make([][3]float64, 0, hint),
	}
	if f.Cell, err = ParseLattice(comment); err != nil {
		return nil, fmt.Errorf("line 2: %w", err)
	}

	for len(f.Points) < n {
		text, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: expected %d points, got %d", ErrFormat, n, len(f.Points))
		}

		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: line %d: expected \"symbol x y z\", got %q", ErrFormat, line, text)
		}

		var p [3]float64
		for i := range 3 {
			if p[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrFormat, line, err)
			}
		}
		f.Symbols = append(f.Symbols, fields[0])
		f.Points = append(f.Points, p)
	}

	return f, nil
}

// Write writes f as a single frame. A cell that is not already part of the
// comment is prepended to it as a Lattice="..." property.
func Write(w io.Writer, f *Frame) error {
	bw := bufio.NewWriter(w)

	comment := strings.ReplaceAll(f.Comment, "\n", " ")
	if f.Cell != nil {
		if cell, _ := ParseLattice(comment); cell == nil {
			comment = strings.TrimSpace(FormatLattice(*f.Cell) + " " + comment)
		}
	}

	fmt.Fprintf(bw, "%d\n%s\n", len(f.Points), comment)
	for i, p := range f.Points {
		sym := "X"
		if i < len(f.Symbols) && f.Symbols[i] != "" {
			sym = f.Symbols[i]
		}
		fmt.Fprintf(bw, "%-2s %15.8f %15.8f %15.8f\n", sym, p[0], p[1], p[2])
	}

	return bw.Flush()
}

// ParseLattice extracts the Lattice="..." property from an extended-XYZ
// comment. It returns nil without error when the property is absent.
func ParseLattice(comment string) (*[3][3]float64, error) {
	value, ok := property(comment, "lattice")
	if !ok {
		return nil, nil
	}

	fields := strings.Fields(value)
	if len(fields) != 9 {
		return nil, fmt.Errorf("%w: Lattice needs 9 numbers, got %d", ErrFormat, len(fields))
	}

	var m [3][3]float64
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: Lattice: %w", ErrFormat, err)
		}
		m[i/3][i%3] = v
	}
	return &m, nil
}

// FormatLattice renders m as an extended-XYZ Lattice property.
func FormatLattice(m [3][3]float64) string {
	parts := make([]string, 0, 9)
	for _, row := range m {
		for _, v := range row {
			parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return `Lattice="` + strings.Join(parts, " ") + `"`
}

// property returns the value of key=value or key="quoted value" in s.
// Keys match case-insensitively.
func property(s, key string) (string, bool) {
	for len(s) > 0 {
		s = strings.TrimLeft(s, " \t")
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return "", false
		}
		name := s[:eq]
		if sp := strings.LastIndexAny(name, " \t"); sp >= 0 {
			name = name[sp+1:]
		}
		s = s[eq+1:]

		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				return "", false
			}
			value, s = s[1:end+1], s[end+2:]
		} else {
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				end = len(s)
			}
			value, s = s[:end], s[end:]
		}

		if strings.EqualFold(name, key) {
			return value, true
		}
	}
	return "", false
}
