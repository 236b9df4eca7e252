package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meigma/bif"
)

var (
	compressFormat    string
	compressBlockSize int
	compressName      string
)

var compressCmd = &cobra.Command{
	Use:   "compress <archive> <output>",
	Short: "Write an archive as BIF or BIFC",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompress,
}

var decompressCmd = &cobra.Command{
	Use:   "decompress <archive> <output>",
	Short: "Write the uncompressed BIFF form of an archive",
	Args:  cobra.ExactArgs(2),
	RunE:  runDecompress,
}

func init() {
	compressCmd.Flags().StringVarP(&compressFormat, "format", "f", "bifc", "Output format: bif or bifc")
	compressCmd.Flags().IntVar(&compressBlockSize, "block-size", bif.DefaultBlockSize, "Decompressed block size for BIFC output")
	compressCmd.Flags().StringVar(&compressName, "name", "", "Archive name stored in BIF output (default: output file name)")
}

func runCompress(cmd *cobra.Command, args []string) error {
	a, err := openArchive(args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	var biff bytes.Buffer
	if _, err := a.Decompress(cmd.Context(), &biff); err != nil {
		return err
	}

	var out bytes.Buffer
	switch compressFormat {
	case "bif":
		name := compressName
		if name == "" {
			name = filepath.Base(args[1])
		}
		err = bif.CompressBIF(&out, name, biff.Bytes())
	case "bifc":
		err = bif.CompressBIFC(&out, biff.Bytes(), compressBlockSize)
	default:
		return fmt.Errorf("unknown format %q (want bif or bifc)", compressFormat)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], out.Bytes(), 0o644); err != nil { //nolint:gosec // archives are not secret
		return err
	}
	log.Info().
		Str("output", args[1]).
		Str("format", compressFormat).
		Int("uncompressed", biff.Len()).
		Int("compressed", out.Len()).
		Msg("archive written")
	return nil
}

func runDecompress(cmd *cobra.Command, args []string) error {
	a, err := openArchive(args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	n, err := a.Decompress(cmd.Context(), f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(args[1]) //nolint:errcheck // best-effort cleanup
		return err
	}
	log.Info().Str("output", args[1]).Int64("bytes", n).Msg("archive written")
	return nil
}
