//go:build windows

package dfs

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// detectFilesystem resolves the volume root holding path and asks it for
// its file system name (NTFS, ReFS, exFAT...).
func detectFilesystem(path string) (string, error) {
	full, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p, err := windows.UTF16PtrFromString(full)
	if err != nil {
		return "", err
	}

	var root [windows.MAX_PATH + 1]uint16
	if err := windows.GetVolumePathName(p, &root[0], uint32(len(root))); err != nil {
		return "", fmt.Errorf("volume of %s: %w", full, err)
	}

	var fsName [windows.MAX_PATH + 1]uint16
	err = windows.GetVolumeInformation(&root[0], nil, 0, nil, nil, nil, &fsName[0], uint32(len(fsName)))
	if err != nil {
		return "", fmt.Errorf("volume information for %s: %w", full, err)
	}
	return windows.UTF16ToString(fsName[:]), nil
}
