package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/neighbors/internal/conv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a run. It is loaded from YAML and overlaid
// by command-line flags.
type Config struct {
	Radius      float64     `yaml:"radius"`
	Cell        [][]float64 `yaml:"cell,omitempty"`
	Strategy    string      `yaml:"strategy"`
	Backend     string      `yaml:"backend"`
	BucketSize  int         `yaml:"bucket_size"`
	Workers     int         `yaml:"workers"`
	Format      string      `yaml:"format"`
	Output      string      `yaml:"output,omitempty"`
	IOLimit     int64       `yaml:"io_limit"`
	MemoryLimit int64       `yaml:"memory_limit"`
	LogLevel    string      `yaml:"log_level"`
}

// DefaultConfig returns the settings used when neither file nor flag sets a value.
func DefaultConfig() Config {
	return Config{
		Radius:   3.0,
		Strategy: "mirror",
		Backend:  "octree",
		Format:   "json",
		LogLevel: "warn",
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Lattice returns the configured cell, or nil if none is set.
func (c Config) Lattice() (*[3][3]float64, error) {
	if len(c.Cell) == 0 {
		return nil, nil
	}
	if len(c.Cell) != 3 {
		return nil, fmt.Errorf("cell: want 3 vectors, got %d", len(c.Cell))
	}

	var m [3][3]float64
	for i, row := range c.Cell {
		if len(row) != 3 {
			return nil, fmt.Errorf("cell: vector %d has %d components", i, len(row))
		}
		copy(m[i][:], row)
	}
	return &m, nil
}

// parseFloats parses n comma-separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %d", n, len(parts))
	}

	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseCell parses nine numbers, the lattice vectors a, b and c in order.
func parseCell(s string) ([][]float64, error) {
	v, err := parseFloats(s, 9)
	if err != nil {
		return nil, fmt.Errorf("cell: %w", err)
	}
	return [][]float64{v[0:3], v[3:6], v[6:9]}, nil
}

func parsePoint(s string) ([3]float64, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return [3]float64{}, fmt.Errorf("point: %w", err)
	}
	return [3]float64{v[0], v[1], v[2]}, nil
}

var errHostRange = errors.New("host out of range")

// parseHosts parses a 1-based selection like "1-4,7,10-12" over n points.
// An empty selection selects every point.
func parseHosts(s string, n int) (*roaring.Bitmap, error) {
	last, err := conv.IntToUint32(n)
	if err != nil {
		return nil, err
	}

	hosts := roaring.New()
	if strings.TrimSpace(s) == "" {
		hosts.AddRange(1, uint64(last)+1)
		return hosts, nil
	}

	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(strings.TrimSpace(part), "-")

		first, err := parseHost(lo)
		if err != nil {
			return nil, err
		}
		end := first
		if isRange {
			if end, err = parseHost(hi); err != nil {
				return nil, err
			}
		}

		if first == 0 || end < first || end > last {
			return nil, fmt.Errorf("%w: %q with %d points", errHostRange, part, n)
		}
		hosts.AddRange(uint64(first), uint64(end)+1)
	}

	return hosts, nil
}

func parseHost(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("hosts: %w", err)
	}
	return conv.Uint64ToUint32(v)
}

// hostKeys returns the selected hosts in ascending order.
func hostKeys(hosts *roaring.Bitmap) ([]int, error) {
	keys := make([]int, 0, hosts.GetCardinality())
	it := hosts.Iterator()
	for it.HasNext() {
		k, err := conv.Uint32ToInt(it.Next())
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}
