// This package contains benchmark related logic/tests.
package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jdefrancesco/imgDitto/internal/config"
	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"
	"github.com/jdefrancesco/imgDitto/internal/dwalk"
	"github.com/jdefrancesco/imgDitto/internal/index"
	"github.com/jdefrancesco/imgDitto/internal/match"
)

func TestMain(m *testing.M) {
	// Keep benchmark runs from creating log files.
	dsklog.InitializeDlogger(os.DevNull)
	os.Exit(m.Run())
}

// imageTree creates n images under dir/primary and dir/secondary. Every
// other secondary image is a copy of a primary one.
func imageTree(b *testing.B, n int) (string, string) {
	b.Helper()
	dir := b.TempDir()
	primary := filepath.Join(dir, "primary", "level1")
	secondary := filepath.Join(dir, "secondary", "level1", "level2")
	for _, d := range []string{primary, secondary} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			b.Fatal(err)
		}
	}

	for i := range n {
		body := []byte(fmt.Sprintf("image data %d", i))
		if err := os.WriteFile(filepath.Join(primary, fmt.Sprintf("img%d.jpg", i)), body, 0o600); err != nil {
			b.Fatal(err)
		}
		if i%2 == 1 {
			body = []byte(fmt.Sprintf("unique data %d", i))
		}
		if err := os.WriteFile(filepath.Join(secondary, fmt.Sprintf("copy%d.png", i)), body, 0o600); err != nil {
			b.Fatal(err)
		}
	}
	return filepath.Dir(primary), filepath.Dir(filepath.Dir(secondary))
}

// BenchmarkNewDfile benchmarks overhead of fingerprinting one image.
func BenchmarkNewDfile(b *testing.B) {
	for _, algo := range []dfs.HashAlgorithm{dfs.HashSHA256, dfs.HashBLAKE3} {
		b.Run(string(algo), func(b *testing.B) {
			path := filepath.Join(b.TempDir(), "bench.jpg")
			data := make([]byte, 4*1024*1024)
			if err := os.WriteFile(path, data, 0o600); err != nil {
				b.Fatal(err)
			}

			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for b.Loop() {
				if _, err := dfs.NewDfile(path, int64(len(data)), algo); err != nil {
					b.Fatalf("NewDfile failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkCollect benchmarks walking and hashing a tree.
func BenchmarkCollect(b *testing.B) {
	primary, _ := imageTree(b, 200)
	cfg := config.Default()

	b.ResetTimer()
	for b.Loop() {
		files, err := dwalk.Collect(context.Background(), primary, cfg)
		if err != nil {
			b.Fatal(err)
		}
		if len(files) != 200 {
			b.Fatalf("collected %d files, want 200", len(files))
		}
	}
}

func indexedTree(b *testing.B, n int) (*index.Store, []string, []string) {
	b.Helper()
	primaryDir, secondaryDir := imageTree(b, n)
	cfg := config.Default()
	ctx := context.Background()

	primary, err := dwalk.Collect(ctx, primaryDir, cfg)
	if err != nil {
		b.Fatal(err)
	}
	secondary, err := dwalk.Collect(ctx, secondaryDir, cfg)
	if err != nil {
		b.Fatal(err)
	}

	store, err := index.Open(ctx, filepath.Join(b.TempDir(), "index.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { store.Close() })
	if err := store.AddFiles(ctx, append(primary, secondary...)); err != nil {
		b.Fatal(err)
	}
	return store, dwalk.Paths(primary), dwalk.Paths(secondary)
}

// BenchmarkIndexLookup benchmarks a single fingerprint self-join.
func BenchmarkIndexLookup(b *testing.B) {
	store, primary, _ := indexedTree(b, 500)
	ctx := context.Background()

	for _, key := range []match.Key{match.ContentHash, match.SizeBytes} {
		b.Run(key.String(), func(b *testing.B) {
			i := 0
			for b.Loop() {
				if _, err := store.Lookup(ctx, primary[i%len(primary)], key); err != nil {
					b.Fatal(err)
				}
				i++
			}
		})
	}
}

// BenchmarkMatch benchmarks the whole matching engine over the index at
// several lookup limits.
func BenchmarkMatch(b *testing.B) {
	store, primary, secondary := indexedTree(b, 500)
	ctx := context.Background()

	for _, limit := range []int{0, 1, 8} {
		b.Run(fmt.Sprintf("limit=%d", limit), func(b *testing.B) {
			for b.Loop() {
				res := match.Match(ctx, primary, secondary, store, match.ContentHash, match.WithLimit(limit))
				if res.Outcome != match.OK {
					b.Fatalf("outcome %s: %v", res.Outcome, res.Cause)
				}
				if got := res.Mapping.MapSize(); got != 250 {
					b.Fatalf("mapping has %d primaries, want 250", got)
				}
			}
		})
	}
}
