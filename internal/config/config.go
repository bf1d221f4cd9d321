package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/match"
	"github.com/jdefrancesco/imgDitto/pkg/utils"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Skip over empty files.
	SkipEmpty bool
	// SkipHidden controls whether hidden dotfiles and directories are skipped.
	SkipHidden bool
	// File size limits. Zero disables the limit.
	MinFileSize uint
	MaxFileSize uint
	// HashAlgorithm selects which digest is used when hashing file contents.
	HashAlgorithm dfs.HashAlgorithm
	// Extensions considered images.
	Extensions []string

	// Key is the fingerprint attribute compared between trees.
	Key match.Key
	// IndexPath is the SQLite fingerprint index. Empty means a throwaway
	// database in the temp dir.
	IndexPath string
	// Concurrency bounds in-flight index lookups. Zero is unbounded.
	Concurrency int

	DryRun  bool
	Verbose bool
	// ReviewOnly stops after matching; nothing is removed.
	ReviewOnly bool

	LogFile  string
	LogLevel string
}

// fileConfig is the on-disk TOML layout.
type fileConfig struct {
	Scan struct {
		SkipEmpty  *bool    `toml:"skip_empty"`
		SkipHidden *bool    `toml:"skip_hidden"`
		MinSize    string   `toml:"min_size"`
		MaxSize    string   `toml:"max_size"`
		Hash       string   `toml:"hash"`
		Extensions []string `toml:"extensions"`
	} `toml:"scan"`
	Match struct {
		Key         string `toml:"key"`
		Index       string `toml:"index"`
		Concurrency *int   `toml:"concurrency"`
	} `toml:"match"`
	Remove struct {
		DryRun *bool `toml:"dry_run"`
	} `toml:"remove"`
	Log struct {
		File  string `toml:"file"`
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		SkipEmpty:     true,
		SkipHidden:    true,
		MaxFileSize:   uint(4 * utils.GiB),
		HashAlgorithm: dfs.HashSHA256,
		Extensions:    append([]string(nil), dfs.DefaultImageExtensions...),
		Key:           match.ContentHash,
		Concurrency:   runtime.NumCPU() * 4,
		LogFile:       filepath.Join(os.TempDir(), "imgDitto.log"),
		LogLevel:      "info",
	}
}

// DefaultPath is ~/.config/imgDitto/config.toml (or the OS equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "imgDitto", "config.toml")
}

// Load reads path on top of Default(). A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	// #nosec G304 -- user supplied config path
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.decode(data); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Scan.SkipEmpty != nil {
		c.SkipEmpty = *fc.Scan.SkipEmpty
	}
	if fc.Scan.SkipHidden != nil {
		c.SkipHidden = *fc.Scan.SkipHidden
	}
	if fc.Scan.MinSize != "" {
		n, err := utils.ParseSize(fc.Scan.MinSize)
		if err != nil {
			return fmt.Errorf("scan.min_size: %w", err)
		}
		c.MinFileSize = uint(n)
	}
	if fc.Scan.MaxSize != "" {
		n, err := utils.ParseSize(fc.Scan.MaxSize)
		if err != nil {
			return fmt.Errorf("scan.max_size: %w", err)
		}
		c.MaxFileSize = uint(n)
	}
	if fc.Scan.Hash != "" {
		algo, err := dfs.ParseHashAlgorithm(fc.Scan.Hash)
		if err != nil {
			return fmt.Errorf("scan.hash: %w", err)
		}
		c.HashAlgorithm = algo
	}
	if len(fc.Scan.Extensions) > 0 {
		c.Extensions = fc.Scan.Extensions
	}

	if fc.Match.Key != "" {
		key, ok := match.ParseKey(fc.Match.Key)
		if !ok {
			return fmt.Errorf("match.key: %w: %q", ErrInvalid, fc.Match.Key)
		}
		c.Key = key
	}
	if fc.Match.Index != "" {
		c.IndexPath = fc.Match.Index
	}
	if fc.Match.Concurrency != nil {
		c.Concurrency = *fc.Match.Concurrency
	}

	if fc.Remove.DryRun != nil {
		c.DryRun = *fc.Remove.DryRun
	}

	if fc.Log.File != "" {
		c.LogFile = fc.Log.File
	}
	if fc.Log.Level != "" {
		c.LogLevel = fc.Log.Level
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if !c.Key.Valid() {
		return fmt.Errorf("%w: fingerprint key %q", ErrInvalid, c.Key)
	}
	if _, err := dfs.ParseHashAlgorithm(string(c.HashAlgorithm)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.MaxFileSize > 0 && c.MinFileSize >= c.MaxFileSize {
		return fmt.Errorf("%w: min size %d must be below max size %d", ErrInvalid, c.MinFileSize, c.MaxFileSize)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency %d is negative", ErrInvalid, c.Concurrency)
	}
	if len(dfs.NewExtensionSet(c.Extensions)) == 0 {
		return fmt.Errorf("%w: no image extensions configured", ErrInvalid)
	}
	return nil
}
