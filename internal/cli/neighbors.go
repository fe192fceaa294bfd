package cli

import (
	"context"

	"github.com/hupe1980/neighbors"
	"github.com/hupe1980/neighbors/xyz"
	"github.com/spf13/cobra"
)

func newNeighborsCmd(root *rootOptions) *cobra.Command {
	var hosts string

	cmd := &cobra.Command{
		Use:   "neighbors <file.xyz>",
		Short: "List the neighbors of atoms within the cutoff radius",
		Long: `List the neighbors of every selected atom within the cutoff radius.

Atoms are numbered from 1 in file order. A Lattice="..." property in the
comment line, or --cell, enables periodic mode.

Examples:
  nbsearch neighbors water.xyz --radius 1.2
  nbsearch neighbors crystal.xyz.zst --hosts 1-4,9 --strategy halo -o out.json.lz4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := root.setup(cmd)
			if err != nil {
				return err
			}
			return runNeighbors(cmd, e, args[0], hosts)
		},
	}

	cmd.Flags().StringVar(&hosts, "hosts", "", "Atoms to list, e.g. 1-4,9 (default all)")

	return cmd
}

func runNeighbors(cmd *cobra.Command, e *env, path, hostSpec string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	nh, frame, err := e.load(ctx, cmd, path)
	if err != nil {
		return err
	}

	hosts, err := parseHosts(hostSpec, frame.Len())
	if err != nil {
		return err
	}
	keys, err := hostKeys(hosts)
	if err != nil {
		return err
	}

	list, err := nh.NeighborList(ctx, e.cfg.Radius, func(o *neighbors.BulkOptions[int]) {
		o.Hosts = keys
		o.Workers = e.cfg.Workers
		o.Controller = e.rc
	})
	if err != nil {
		return err
	}

	report := Report{Radius: e.cfg.Radius, Periodic: nh.Periodic(), Points: nh.NPoints()}
	for host, nbs := range list {
		for _, nb := range nbs {
			report.Neighbors = append(report.Neighbors, newRecord(host, nb, frame.Symbols))
		}
	}
	sortRecords(report.Neighbors)

	e.logStats()
	return e.emit(ctx, cmd, report)
}

// load reads path into a Neighborhood keyed by 1-based atom number.
func (e *env) load(ctx context.Context, cmd *cobra.Command, path string) (*neighbors.Neighborhood[int], *xyz.Frame, error) {
	frame, err := readFrame(ctx, path, cmd.InOrStdin(), e.rc)
	if err != nil {
		return nil, nil, err
	}

	nh := neighbors.New[int](e.opts...)

	entries := make([]neighbors.Entry[int], frame.Len())
	for i, p := range frame.Points {
		entries[i] = neighbors.Entry[int]{Key: i + 1, Point: p}
	}
	if err := nh.Update(entries...); err != nil {
		return nil, nil, err
	}

	cell, err := e.cfg.Lattice()
	if err != nil {
		return nil, nil, err
	}
	if cell == nil {
		cell = frame.Cell
	}
	if cell != nil {
		if err := nh.SetLattice(*cell); err != nil {
			return nil, nil, err
		}
	}

	return nh, frame, nil
}

func (e *env) emit(ctx context.Context, cmd *cobra.Command, r Report) error {
	if r.Neighbors == nil {
		r.Neighbors = []Record{}
	}
	data, err := encode(e.cfg.Format, r)
	if err != nil {
		return err
	}
	return writeOutput(ctx, e.cfg.Output, cmd.OutOrStdout(), e.rc, data)
}
