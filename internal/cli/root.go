// Package cli implements the nbsearch command line.
package cli

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/resource"
	"github.com/hupe1980/neighbors/spatial"
	"github.com/spf13/cobra"
)

// rootOptions holds the raw values of the persistent flags.
type rootOptions struct {
	configPath string
	flags      Config
	cell       string
}

// NewRootCmd creates the nbsearch command tree.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{flags: DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "nbsearch",
		Short: "Fixed-radius neighbor search over XYZ structures",
		Long: `nbsearch finds atoms within a cutoff radius in XYZ and extended-XYZ files,
optionally under periodic boundary conditions.

Input and output files ending in .zst or .lz4 are (de)compressed on the fly.
Settings are read from --config (YAML) and overridden by flags.`,
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "YAML config file")
	f.Float64VarP(&o.flags.Radius, "radius", "r", o.flags.Radius, "Cutoff radius")
	f.StringVar(&o.cell, "cell", "", "Lattice vectors a,b,c as nine comma-separated numbers (enables periodic mode)")
	f.StringVar(&o.flags.Strategy, "strategy", o.flags.Strategy, "Periodic strategy (mirror, halo)")
	f.StringVar(&o.flags.Backend, "backend", o.flags.Backend, "Spatial index (octree, kdtree)")
	f.IntVar(&o.flags.BucketSize, "bucket-size", o.flags.BucketSize, "Octree leaf capacity (0 selects the default)")
	f.IntVarP(&o.flags.Workers, "workers", "w", o.flags.Workers, "Parallel hosts (0 selects GOMAXPROCS)")
	f.StringVarP(&o.flags.Format, "format", "f", o.flags.Format, "Output format (json, json-indent, text)")
	f.StringVarP(&o.flags.Output, "output", "o", "", "Output file (default stdout)")
	f.Int64Var(&o.flags.IOLimit, "io-limit", 0, "Read and write limit in bytes per second (0 is unlimited)")
	f.Int64Var(&o.flags.MemoryLimit, "memory-limit", 0, "Result memory budget in bytes (0 is unlimited)")
	f.StringVar(&o.flags.LogLevel, "log-level", o.flags.LogLevel, "Log level (debug, info, warn, error)")

	cmd.AddCommand(newNeighborsCmd(o), newSearchCmd(o))

	return cmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// resolve merges defaults, the config file and the flags set on cmd.
func (o *rootOptions) resolve(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = LoadConfig(o.configPath); err != nil {
			return cfg, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("radius") {
		cfg.Radius = o.flags.Radius
	}
	if fl.Changed("cell") {
		cell, err := parseCell(o.cell)
		if err != nil {
			return cfg, err
		}
		cfg.Cell = cell
	}
	if fl.Changed("strategy") {
		cfg.Strategy = o.flags.Strategy
	}
	if fl.Changed("backend") {
		cfg.Backend = o.flags.Backend
	}
	if fl.Changed("bucket-size") {
		cfg.BucketSize = o.flags.BucketSize
	}
	if fl.Changed("workers") {
		cfg.Workers = o.flags.Workers
	}
	if fl.Changed("format") {
		cfg.Format = o.flags.Format
	}
	if fl.Changed("output") {
		cfg.Output = o.flags.Output
	}
	if fl.Changed("io-limit") {
		cfg.IOLimit = o.flags.IOLimit
	}
	if fl.Changed("memory-limit") {
		cfg.MemoryLimit = o.flags.MemoryLimit
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = o.flags.LogLevel
	}

	return cfg, nil
}

// env is the runtime state shared by the subcommands.
type env struct {
	cfg     Config
	logger  *neighbors.Logger
	metrics *neighbors.BasicMetricsCollector
	rc      *resource.Controller
	opts    []neighbors.Option
}

func (o *rootOptions) setup(cmd *cobra.Command) (*env, error) {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	strategy, err := neighbors.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	backend, err := spatial.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	if cfg.Workers < 1 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	e := &env{
		cfg:     cfg,
		logger:  neighbors.NewLogger(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})),
		metrics: &neighbors.BasicMetricsCollector{},
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   cfg.MemoryLimit,
			MaxWorkers:         int64(cfg.Workers),
			IOLimitBytesPerSec: cfg.IOLimit,
		}),
	}
	e.opts = []neighbors.Option{
		neighbors.WithBackend(backend),
		neighbors.WithBucketSize(cfg.BucketSize),
		neighbors.WithPeriodicStrategy(strategy),
		neighbors.WithLogger(e.logger),
		neighbors.WithMetricsCollector(e.metrics),
	}

	return e, nil
}

// logStats reports the collected metrics at debug level.
func (e *env) logStats() {
	s := e.metrics.GetStats()
	e.logger.Debug("run stats",
		"points", s.Points,
		"searches", s.SearchCount,
		"search_results", s.SearchResults,
		"neighbor_queries", s.NeighborsCount,
		"halo_builds", s.HaloBuildCount,
		"bulk_hosts", s.BulkHosts,
	)
}
