// Command nbsearch finds neighboring atoms in XYZ structure files.
//
//	nbsearch neighbors structure.xyz --radius 3.0 --hosts 1-4
//	nbsearch search structure.xyz --point 0,0,0 --radius 2.5 --format text
package main

import (
	"os"

	"github.com/hupe1980/neighbors/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
