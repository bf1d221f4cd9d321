//go:build linux

package dfs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// fsMagic names the statfs magic numbers of file systems image libraries
// commonly live on.
var fsMagic = map[int64]string{
	unix.EXT4_SUPER_MAGIC:      "ext2/ext3/ext4",
	unix.BTRFS_SUPER_MAGIC:     "btrfs",
	unix.XFS_SUPER_MAGIC:       "xfs",
	unix.TMPFS_MAGIC:           "tmpfs",
	unix.RAMFS_MAGIC:           "ramfs",
	unix.SQUASHFS_MAGIC:        "squashfs",
	unix.F2FS_SUPER_MAGIC:      "f2fs",
	unix.NFS_SUPER_MAGIC:       "nfs",
	unix.OVERLAYFS_SUPER_MAGIC: "overlayfs",
	unix.MSDOS_SUPER_MAGIC:     "vfat",
	0x65735546:                 "fuse",
	0x5346544e:                 "ntfs",
	0x2fc12fc1:                 "zfs",
}

func detectFilesystem(path string) (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "", fmt.Errorf("statfs %s: %w", path, err)
	}

	magic := int64(st.Type) // #nosec G115 -- int32 on some arches
	if name, ok := fsMagic[magic]; ok {
		return name, nil
	}
	return fmt.Sprintf("unknown (magic=0x%x)", magic), nil
}
