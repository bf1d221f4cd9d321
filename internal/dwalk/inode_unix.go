//go:build unix

package dwalk

import (
	"os"
	"syscall"
)

// fileIdentity is the (device, inode) pair shared by every hardlink of a
// file.
type fileIdentity struct {
	dev, ino uint64
}

// getFileIdentity returns the identity of info when the file has more than
// one link. Single-link files cannot be reached twice and are not tracked.
func getFileIdentity(info os.FileInfo) (fileIdentity, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil || st.Nlink < 2 {
		return fileIdentity{}, false
	}
	// #nosec G115 -- dev and ino widths are platform defined
	return fileIdentity{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}
