//go:build darwin || freebsd

package dfs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// The BSD statfs carries the file system name directly.
func detectFilesystem(path string) (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "", fmt.Errorf("statfs %s: %w", path, err)
	}
	return unix.ByteSliceToString(st.Fstypename[:]), nil
}
