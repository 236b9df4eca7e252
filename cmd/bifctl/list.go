package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/meigma/bif"
)

var listDigest bool

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List the resource table of an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listDigest, "digest", false, "Read every resource and print its SHA-256 digest")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openArchive(args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := a.Table(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	header := "LOCATOR\tKEY\tTYPE\tOFFSET\tSIZE\tTILES"
	if listDigest {
		header += "\tDIGEST"
	}
	fmt.Fprintln(w, header)
	for i, d := range table {
		loc := locatorAt(a.Header(), i)
		tiles := "-"
		if d.Tile {
			tiles = fmt.Sprintf("%dx%d", d.TileCount, d.TileSize)
		}
		fmt.Fprintf(w, "%s\t%#x\t%s\t%d\t%d\t%s", loc, d.Key, bif.ResourceType(d.Type), d.Offset, d.DataSize(), tiles)
		if listDigest {
			data, err := a.Fetch(ctx, loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\t%s", digest.FromBytes(data))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
