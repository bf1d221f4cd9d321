package dfs

import (
	"path/filepath"
	"strings"
)

// DefaultImageExtensions lists the suffixes we treat as images. Raw camera
// formats are included since those are what people tend to copy around.
var DefaultImageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp",
	".heic", ".heif", ".avif", ".cr2", ".nef", ".arw", ".dng",
}

// ExtensionSet is a case-insensitive set of file suffixes.
type ExtensionSet map[string]struct{}

// NewExtensionSet normalizes exts (".JPG", "jpg" and ".jpg" are all the same).
func NewExtensionSet(exts []string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// Match reports whether path carries one of the extensions.
func (s ExtensionSet) Match(path string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(path))]
	return ok
}

var defaultImages = NewExtensionSet(DefaultImageExtensions)

// IsImage reports whether path looks like an image by its extension.
func IsImage(path string) bool {
	return defaultImages.Match(path)
}
