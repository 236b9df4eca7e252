package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Print the header of an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := openArchive(args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	h := a.Header()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Format:             %s %q\n", h.Signature, h.Version)
	if h.Name != "" {
		fmt.Fprintf(out, "Name:               %s\n", h.Name)
	}
	fmt.Fprintf(out, "Resources:          %d\n", h.ResourceCount)
	fmt.Fprintf(out, "Tilesets:           %d\n", h.TilesetCount)
	fmt.Fprintf(out, "Table offset:       %d\n", h.EntryTableOffset)
	fmt.Fprintf(out, "Uncompressed size:  %d\n", h.UncompressedLength)
	if h.Signature.Compressed() {
		fmt.Fprintf(out, "Data offset:        %d\n", h.CompressedStreamOffset)
	}
	return nil
}
