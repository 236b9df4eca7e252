package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meigma/bif"
	"github.com/meigma/bif/key"
)

type extractOptions struct {
	output    string
	keyFile   string
	workers   int
	overwrite bool
	manifest  bool
}

var extractOpts = &extractOptions{}

var extractCmd = &cobra.Command{
	Use:   "extract <archive>",
	Short: "Extract every resource of an archive",
	Long: `Extract every resource of an archive into a directory.

Without --key, files are named by index and type ("00012.itm"). With --key,
resources listed in the KEY file are written under their resource names.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOpts.output, "output", "o", ".", "Destination directory")
	extractCmd.Flags().StringVar(&extractOpts.keyFile, "key", "", "KEY file used to name resources")
	extractCmd.Flags().IntVar(&extractOpts.workers, "workers", 0, "Concurrent writers for BIFF archives (0 = GOMAXPROCS)")
	extractCmd.Flags().BoolVar(&extractOpts.overwrite, "overwrite", false, "Overwrite existing files")
	extractCmd.Flags().BoolVar(&extractOpts.manifest, "manifest", false, "Print the digest of every extracted file")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	a, err := openArchive(path)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(extractOpts.output, 0o750); err != nil {
		return err
	}

	opts := []bif.ExtractOption{
		bif.ExtractWithWorkers(extractOpts.workers),
		bif.ExtractWithOverwrite(extractOpts.overwrite),
	}
	if extractOpts.keyFile != "" {
		namer, err := keyNamer(extractOpts.keyFile, path)
		if err != nil {
			return err
		}
		opts = append(opts, bif.ExtractWithNamer(namer))
	}

	var (
		mu      sync.Mutex
		written []bif.ExtractedResource
	)
	if extractOpts.manifest {
		opts = append(opts, bif.ExtractWithManifest(func(r bif.ExtractedResource) {
			mu.Lock()
			defer mu.Unlock()
			written = append(written, r)
		}))
	}

	stats, err := a.Extract(cmd.Context(), extractOpts.output, opts...)
	if err != nil {
		return err
	}
	log.Info().
		Str("archive", path).
		Int("extracted", stats.Processed).
		Int("skipped", stats.Skipped).
		Uint64("bytes", stats.TotalBytes).
		Msg("extraction complete")

	slices.SortFunc(written, func(x, y bif.ExtractedResource) int { return strings.Compare(x.Name, y.Name) })
	for _, r := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", r.Digest.Encoded(), r.Name)
	}
	return nil
}

// keyNamer names resources after their KEY entries. Records without an
// entry keep their default name.
func keyNamer(keyPath, archivePath string) (bif.Namer, error) {
	k, err := key.Load(keyPath)
	if err != nil {
		return nil, err
	}
	bifIndex, ok := findBif(k, archivePath)
	if !ok {
		return nil, fmt.Errorf("%s is not listed in %s", filepath.Base(archivePath), keyPath)
	}

	names := make(map[bif.Locator]string)
	for _, r := range k.ResourcesIn(bifIndex) {
		_, loc := r.Split()
		names[loc] = r.Filename()
	}
	log.Debug().Int("bif", bifIndex).Int("names", len(names)).Msg("loaded resource names")

	return func(d bif.Descriptor) string {
		if name, ok := names[locatorOf(d)]; ok {
			return name
		}
		return bif.DefaultName(d)
	}, nil
}

// findBif matches an archive to a KEY entry by file name, ignoring case and
// the .bif/.cbf extension.
func findBif(k *key.Key, archivePath string) (int, bool) {
	want := stem(filepath.Base(archivePath))
	for _, e := range k.Bifs {
		if stem(filepath.Base(filepath.FromSlash(e.Filename))) == want {
			return e.Index, true
		}
	}
	return 0, false
}

func stem(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}
