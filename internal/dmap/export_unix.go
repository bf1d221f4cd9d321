//go:build unix

package dmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// openFileSecure opens fileName relative to an already opened dirPath and
// refuses to follow a symlink planted at the final component.
func openFileSecure(absPath, dirPath, fileName string) (*os.File, error) {
	if fileName == "" || fileName == "." || fileName == ".." || fileName == "/" {
		return nil, fmt.Errorf("invalid output filename %q", fileName)
	}

	// #nosec G304 -- directory of a cleaned, absolute output path
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, fmt.Errorf("open directory %s: %w", dirPath, err)
	}
	defer dir.Close()

	flags := unix.O_WRONLY | unix.O_CREAT | unix.O_TRUNC | unix.O_CLOEXEC | unix.O_NOFOLLOW
	fd, err := unix.Openat(int(dir.Fd()), fileName, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open output file %s: %w", absPath, err)
	}
	return os.NewFile(uintptr(fd), absPath), nil
}
