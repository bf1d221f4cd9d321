package dfs

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jdefrancesco/imgDitto/internal/dsklog"

	"lukechampine.com/blake3"
)

// For now this will be our max open-file descriptor limit. This value
// is used by hashing function semaphore logic.
const OpenFileDescLimMax = 2048

// HashAlgorithm selects the digest used for content fingerprints.
type HashAlgorithm string

const (
	HashSHA256 HashAlgorithm = "sha256"
	HashBLAKE3 HashAlgorithm = "blake3"
)

// ErrUnknownHash is returned for a HashAlgorithm we do not implement.
var ErrUnknownHash = errors.New("unknown hash algorithm")

// ParseHashAlgorithm maps user input onto a HashAlgorithm.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch HashAlgorithm(strings.ToLower(strings.TrimSpace(s))) {
	case HashSHA256, "":
		return HashSHA256, nil
	case HashBLAKE3:
		return HashBLAKE3, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHash, s)
}

func (a HashAlgorithm) newHash() (hash.Hash, error) {
	switch a {
	case HashSHA256, "":
		return sha256.New(), nil
	case HashBLAKE3:
		return blake3.New(32, nil), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHash, string(a))
}

// Dfile describes an image we have fingerprinted. We only care about
// the few properties that allow us to detect a duplicate.
type Dfile struct {
	fileName string
	fileSize int64
	algo     HashAlgorithm
	// Digest as raw bytes. Both supported algorithms produce 32 bytes.
	fileHash [32]byte
}

// NewDfile creates a new Dfile and hashes its content with algo.
func NewDfile(fName string, fSize int64, algo HashAlgorithm) (*Dfile, error) {

	if fName == "" {
		return nil, errors.New("file name needs to be specified")
	}
	if fSize < 0 {
		return nil, fmt.Errorf("negative size %d for %s", fSize, fName)
	}

	fullFileName, err := filepath.Abs(fName)
	if err != nil {
		return nil, fmt.Errorf("absolute path for %s: %w", fName, err)
	}

	if algo == "" {
		algo = HashSHA256
	}

	d := &Dfile{
		fileName: fullFileName,
		fileSize: fSize,
		algo:     algo,
	}

	if err = d.hashFile(); err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}

	return d, nil
}

// FileName will return the name of the file currently described by the dfile
func (d *Dfile) FileName() string { return d.fileName }

// BaseName returns the base filename only instead of the full pathname.
func (d *Dfile) BaseName() string { return filepath.Base(d.fileName) }

// FileSize will return the size of the file described by dfile object.
func (d *Dfile) FileSize() int64 { return d.fileSize }

// Algorithm returns the digest the file was hashed with.
func (d *Dfile) Algorithm() HashAlgorithm { return d.algo }

// Hash will return the digest as byte array.
func (d *Dfile) Hash() [32]byte { return d.fileHash }

// HashString will return the digest as hex string.
func (d *Dfile) HashString() string { return fmt.Sprintf("%x", d.fileHash) }

// Semaphore that controls how many open file descriptors we can have at once..
var sema = make(chan struct{}, OpenFileDescLimMax)

// Hashing images back to back; reuse 1MiB buffers instead of allocating one per file.
var bufPool = sync.Pool{
	New: func() any {
		var arr [1 << 20]byte
		return &arr
	},
}

func (d *Dfile) hashFile() error {
	h, err := d.algo.newHash()
	if err != nil {
		return err
	}

	// Acquire concurrency/semaphore permit
	sema <- struct{}{}
	defer func() { <-sema }()

	bufPtr := bufPool.Get().(*[1 << 20]byte)
	defer bufPool.Put(bufPtr)

	// #nosec G304 -- path comes from the directory walker
	f, err := os.Open(d.fileName)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", d.fileName, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			dsklog.Dlogger.Debugf("Error closing file %s: %v", d.fileName, err)
		}
	}()

	if _, err := io.CopyBuffer(h, f, bufPtr[:]); err != nil {
		return fmt.Errorf("failed to copy file %s into hash buffer for processing: %w", d.fileName, err)
	}

	copy(d.fileHash[:], h.Sum(nil))
	return nil
}
