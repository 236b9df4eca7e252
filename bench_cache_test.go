package bif

import (
	"context"
	"testing"

	"github.com/meigma/bif/cache"
	"github.com/meigma/bif/cache/disk"
	"github.com/meigma/bif/cache/memory"
)

func BenchmarkArchiveFetchCacheHit(b *testing.B) {
	const count = 64
	biff := makeBenchBIFF(b, count, 64<<10, benchPatternRandom)

	caches := []struct {
		name string
		new  func(b *testing.B) cache.Cache
	}{
		{name: "memory", new: func(b *testing.B) cache.Cache {
			c, err := memory.New(count)
			if err != nil {
				b.Fatal(err)
			}
			return c
		}},
		{name: "disk", new: func(b *testing.B) cache.Cache {
			c, err := disk.New(b.TempDir())
			if err != nil {
				b.Fatal(err)
			}
			return c
		}},
	}

	for _, format := range benchFormats() {
		for _, cc := range caches {
			b.Run(format.name+"/"+cc.name, func(b *testing.B) {
				a, err := Open(format.write(b, biff), WithCache(cc.new(b)))
				if err != nil {
					b.Fatal(err)
				}
				defer a.Close()

				ctx := context.Background()
				for i := range count {
					if _, err := a.Fetch(ctx, ResourceAt(uint32(i))); err != nil { //nolint:gosec // bounded
						b.Fatal(err)
					}
				}

				b.SetBytes(64 << 10)
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; b.Loop(); i++ {
					data, err := a.Fetch(ctx, ResourceAt(uint32(i%count))) //nolint:gosec // bounded
					if err != nil {
						b.Fatal(err)
					}
					benchSinkBytes = data
				}
			})
		}
	}
}
