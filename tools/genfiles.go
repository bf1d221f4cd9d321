//go:build tools
// +build tools

// genfiles builds a primary and a secondary image tree for trying imgDitto
// by hand. A share of the secondary images are byte copies of primaries.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var sizes = []int64{
	16 * 1024,       // 16KiB thumbnail
	512 * 1024,      // 512KiB
	4 * 1024 * 1024, // 4MiB photo
}

var exts = []string{".jpg", ".png", ".webp"}

type randReader struct {
	remaining int64
}

func (r *randReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := rand.Read(p)
	r.remaining -= int64(n)
	return n, err
}

func writeRandom(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, &randReader{remaining: size})
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func createTrees(dir string, n, dupEvery int) (int, error) {
	primary := filepath.Join(dir, "primary")
	secondary := filepath.Join(dir, "secondary", "import")
	for _, d := range []string{primary, secondary} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return 0, err
		}
	}

	dups := 0
	for i := 0; i < n; i++ {
		ext := exts[i%len(exts)]
		src := filepath.Join(primary, fmt.Sprintf("IMG_%04d%s", i, ext))
		if err := writeRandom(src, sizes[i%len(sizes)]); err != nil {
			return dups, err
		}

		dst := filepath.Join(secondary, fmt.Sprintf("photo-%d%s", i, ext))
		if dupEvery > 0 && i%dupEvery == 0 {
			if err := copyFile(src, dst); err != nil {
				return dups, err
			}
			dups++
			continue
		}
		if err := writeRandom(dst, sizes[i%len(sizes)]); err != nil {
			return dups, err
		}
	}
	return dups, nil
}

func main() {
	dir := flag.String("dir", "./files", "Output directory")
	n := flag.Int("n", 100, "Images per tree")
	dupEvery := flag.Int("dup-every", 3, "Make every Nth secondary image a copy (0 for none)")
	flag.Parse()

	dups, err := createTrees(*dir, *n, *dupEvery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %d images per tree in %s, %d secondary copies\n", *n, *dir, dups)
}
