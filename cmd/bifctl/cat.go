package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	catTile   bool
	catOutput string
)

var catCmd = &cobra.Command{
	Use:   "cat <archive> <index>",
	Short: "Write one resource to stdout",
	Args:  cobra.ExactArgs(2),
	RunE:  runCat,
}

func init() {
	catCmd.Flags().BoolVarP(&catTile, "tile", "t", false, "Treat the index as a 1-based tileset index")
	catCmd.Flags().StringVarP(&catOutput, "output", "o", "", "Write to a file instead of stdout")
}

func runCat(cmd *cobra.Command, args []string) error {
	loc, err := parseLocator(args[1], catTile)
	if err != nil {
		return err
	}
	a, err := openArchive(args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.FetchStream(cmd.Context(), loc)
	if err != nil {
		return err
	}
	defer r.Close()

	out := cmd.OutOrStdout()
	if catOutput != "" {
		f, err := os.Create(catOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	if f, ok := out.(*os.File); ok && catOutput != "" {
		return f.Sync()
	}
	return nil
}
