package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/bif/key"
)

var (
	keyBif  int
	keyBifs bool
)

var keyCmd = &cobra.Command{
	Use:   "key <chitin.key>",
	Short: "List the resources or archives of a KEY file",
	Args:  cobra.ExactArgs(1),
	RunE:  runKey,
}

func init() {
	keyCmd.Flags().IntVar(&keyBif, "bif", -1, "Only list resources stored in the archive with this index")
	keyCmd.Flags().BoolVar(&keyBifs, "bifs", false, "List archives instead of resources")
}

func runKey(cmd *cobra.Command, args []string) error {
	k, err := key.Load(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if keyBifs {
		fmt.Fprintln(w, "INDEX\tFILE\tSIZE\tLOCATION")
		for _, e := range k.Bifs {
			fmt.Fprintf(w, "%d\t%s\t%d\t%#04x\n", e.Index, e.Filename, e.FileLength, e.Location)
		}
		return w.Flush()
	}

	resources := k.Resources()
	if keyBif >= 0 {
		resources = k.ResourcesIn(keyBif)
	}
	fmt.Fprintln(w, "RESOURCE\tARCHIVE\tLOCATOR")
	for _, r := range resources {
		archive := "?"
		if e, err := k.Bif(r); err == nil {
			archive = e.Filename
		}
		_, loc := r.Split()
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Filename(), archive, loc)
	}
	return w.Flush()
}
