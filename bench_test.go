package bif

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"testing"

	"github.com/meigma/bif/internal/pack"
	"github.com/meigma/bif/internal/testutil"
)

var (
	benchSinkBytes []byte
	benchSinkDesc  Descriptor
)

type benchPattern string

const (
	benchPatternCompressible benchPattern = "compressible"
	benchPatternRandom       benchPattern = "random"
)

func init() {
	if os.Getenv("BIF_PROFILE_BLOCK") == "1" {
		runtime.SetBlockProfileRate(1)
	}
	if os.Getenv("BIF_PROFILE_MUTEX") == "1" {
		runtime.SetMutexProfileFraction(1)
	}
}

type benchFormat struct {
	name  string
	write func(b *testing.B, biff []byte) string
}

func benchFormats() []benchFormat {
	return []benchFormat{
		{name: "biff", write: func(b *testing.B, biff []byte) string { return testutil.WriteBIFF(b, biff) }},
		{name: "bif", write: func(b *testing.B, biff []byte) string { return testutil.WriteBIF(b, biff) }},
		{name: "bifc", write: func(b *testing.B, biff []byte) string { return testutil.WriteBIFC(b, biff, DefaultBlockSize) }},
	}
}

func makeBenchBIFF(b *testing.B, count, size int, pattern benchPattern) []byte {
	b.Helper()
	resources := make([]pack.Resource, count)
	for i := range resources {
		var data []byte
		switch pattern {
		case benchPatternRandom:
			data = testutil.Bytes(size, uint64(i)+1) //nolint:gosec // i is non-negative
		default:
			data = bytes.Repeat([]byte(fmt.Sprintf("resource %04d ", i)), size/14+1)[:size]
		}
		resources[i] = pack.Resource{Type: uint16(TypeCRE), Data: data}
	}
	return testutil.BuildBIFF(b, resources, nil)
}

func BenchmarkArchiveFetch(b *testing.B) {
	cases := []struct {
		name  string
		count int
		size  int
	}{
		{name: "resources=64/size=4k", count: 64, size: 4 << 10},
		{name: "resources=64/size=64k", count: 64, size: 64 << 10},
		{name: "resources=16/size=1m", count: 16, size: 1 << 20},
	}
	patterns := []benchPattern{benchPatternCompressible, benchPatternRandom}

	for _, bc := range cases {
		for _, pattern := range patterns {
			biff := makeBenchBIFF(b, bc.count, bc.size, pattern)
			for _, format := range benchFormats() {
				b.Run(fmt.Sprintf("%s/%s/%s", bc.name, pattern, format.name), func(b *testing.B) {
					a, err := Open(format.write(b, biff))
					if err != nil {
						b.Fatal(err)
					}
					defer a.Close()

					ctx := context.Background()
					b.SetBytes(int64(bc.size))
					b.ReportAllocs()
					b.ResetTimer()
					for i := 0; b.Loop(); i++ {
						data, err := a.Fetch(ctx, ResourceAt(uint32(i%bc.count))) //nolint:gosec // bounded by count
						if err != nil {
							b.Fatal(err)
						}
						benchSinkBytes = data
					}
				})
			}
		}
	}
}

// BenchmarkArchiveFetchInfo measures the table lookup alone, which for
// compressed archives is dominated by inflating the table.
func BenchmarkArchiveFetchInfo(b *testing.B) {
	biff := makeBenchBIFF(b, 512, 1<<10, benchPatternCompressible)
	for _, format := range benchFormats() {
		b.Run(format.name, func(b *testing.B) {
			a, err := Open(format.write(b, biff))
			if err != nil {
				b.Fatal(err)
			}
			defer a.Close()

			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; b.Loop(); i++ {
				d, err := a.FetchInfo(ctx, ResourceAt(uint32(i%512))) //nolint:gosec // bounded
				if err != nil {
					b.Fatal(err)
				}
				benchSinkDesc = d
			}
		})
	}
}

func BenchmarkArchiveExtract(b *testing.B) {
	biff := makeBenchBIFF(b, 512, 16<<10, benchPatternCompressible)
	for _, format := range benchFormats() {
		for _, workers := range []int{1, runtime.GOMAXPROCS(0)} {
			b.Run(fmt.Sprintf("%s/workers=%d", format.name, workers), func(b *testing.B) {
				a, err := Open(format.write(b, biff))
				if err != nil {
					b.Fatal(err)
				}
				defer a.Close()

				ctx := context.Background()
				b.SetBytes(int64(len(biff)))
				b.ReportAllocs()
				b.ResetTimer()
				for b.Loop() {
					if _, err := a.Extract(ctx, b.TempDir(), ExtractWithWorkers(workers)); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}
