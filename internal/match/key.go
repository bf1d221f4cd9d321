package match

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is returned when text does not name a fingerprint kind.
var ErrUnknownKey = errors.New("unknown fingerprint key")

// Key selects the fingerprint attribute compared between files. The zero
// value is not a valid key.
type Key int

const (
	ContentHash Key = iota + 1
	SizeBytes
)

// Valid reports whether k is one of the recognized fingerprint kinds.
func (k Key) Valid() bool {
	return k == ContentHash || k == SizeBytes
}

func (k Key) String() string {
	switch k {
	case ContentHash:
		return "contentHash"
	case SizeBytes:
		return "sizeBytes"
	}
	return "invalid"
}

// ParseKey accepts the canonical names and the short aliases used on the
// command line. Matching is case-insensitive.
func ParseKey(s string) (Key, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contenthash", "hash", "sha256":
		return ContentHash, true
	case "sizebytes", "size", "filesize":
		return SizeBytes, true
	}
	return 0, false
}

// MarshalText lets Key round trip through TOML and JSON.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	key, ok := ParseKey(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, string(b))
	}
	*k = key
	return nil
}
