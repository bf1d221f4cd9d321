//go:build !linux && !darwin && !freebsd && !windows

package dfs

import (
	"errors"
	"fmt"
)

func detectFilesystem(path string) (string, error) {
	return "", fmt.Errorf("detect file system of %s: %w", path, errors.ErrUnsupported)
}
