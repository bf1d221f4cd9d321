//go:build !unix

package dmap

import (
	"fmt"
	"io/fs"
	"os"
)

func openFileSecure(absPath, _, _ string) (*os.File, error) {
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		return nil, fmt.Errorf("output path %s is a symlink", absPath)
	}
	// #nosec G304 -- cleaned, absolute output path
	file, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open output file %s: %w", absPath, err)
	}
	return file, nil
}
