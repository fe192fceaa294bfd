package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var point string

	cmd := &cobra.Command{
		Use:   "search <file.xyz>",
		Short: "Find atoms within the cutoff radius of a location",
		Long: `Find all atoms, or periodic images of atoms, within the cutoff radius of
an arbitrary location. An atom at the location itself is reported.

Examples:
  nbsearch search water.xyz --point 0,0,0 --radius 2.5
  nbsearch search - --point 1,1,1 --cell 5,0,0,0,5,0,0,0,5 --format text < water.xyz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if point == "" {
				return errors.New("--point is required")
			}
			p, err := parsePoint(point)
			if err != nil {
				return err
			}
			e, err := root.setup(cmd)
			if err != nil {
				return err
			}
			return runSearch(cmd, e, args[0], p)
		},
	}

	cmd.Flags().StringVarP(&point, "point", "p", "", "Query location x,y,z")

	return cmd
}

func runSearch(cmd *cobra.Command, e *env, path string, p [3]float64) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	nh, frame, err := e.load(ctx, cmd, path)
	if err != nil {
		return err
	}

	report := Report{Radius: e.cfg.Radius, Periodic: nh.Periodic(), Points: nh.NPoints()}
	for nb, err := range nh.SearchSeq(p, e.cfg.Radius) {
		if err != nil {
			return err
		}
		report.Neighbors = append(report.Neighbors, newRecord(0, nb, frame.Symbols))
	}
	sortRecords(report.Neighbors)

	e.logStats()
	return e.emit(ctx, cmd, report)
}
