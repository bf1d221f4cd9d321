// Utility functions for querying information about the file systems
// imgDitto is scanning.
package dfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	sigar "github.com/cloudfoundry/gosigar"
)

const OutputFormat = "%-15s %9s %9s %9s %5s %-15s\n"

// ListFileSystems writes a df style listing of mounted file systems to w.
func ListFileSystems(w io.Writer) error {

	fsList := sigar.FileSystemList{}
	if err := fsList.Get(); err != nil {
		return fmt.Errorf("list file systems: %w", err)
	}

	fmt.Fprintf(w, OutputFormat,
		"Filesystem", "Size", "Used", "Avail", "Use%", "Mounted On")

	for _, fs := range fsList.List {
		dirName := fs.DirName
		usage := sigar.FileSystemUsage{}
		if err := usage.Get(dirName); err != nil {
			continue
		}

		fmt.Fprintf(w, OutputFormat,
			fs.DevName,
			formatSize(usage.Total),
			formatSize(usage.Used),
			formatSize(usage.Avail),
			sigar.FormatPercent(usage.UsePercent()),
			dirName)
	}

	return nil
}

// formatSize will make out sizes more human friendly
func formatSize(size uint64) string {
	return sigar.FormatSize(size * 1024)
}

// DetectFilesystem names the file system type backing path.
func DetectFilesystem(path string) (string, error) {
	return detectFilesystem(path)
}

// GetFileSize returns the size of filename, or 0 when it cannot be stat'd.
func GetFileSize(filename string) uint64 {
	if filename == "" {
		return 0
	}
	info, err := os.Stat(filename)
	if err != nil {
		return 0
	}
	return uint64(max(info.Size(), 0)) // #nosec G115
}

// Check if we have proper permissions for investigating
// a file. Performs various safety checks to prevent any
// file path vulnerabilities.
func CheckFilePerms(path string) bool {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return false
	}

	// #nosec G304
	file, err := os.Open(absPath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}
