// Package dedupe runs a whole deduplication pass: enumerate both trees,
// fingerprint them into the index, match, then remove.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdefrancesco/imgDitto/internal/config"
	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/dmap"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"
	"github.com/jdefrancesco/imgDitto/internal/dwalk"
	"github.com/jdefrancesco/imgDitto/internal/index"
	"github.com/jdefrancesco/imgDitto/internal/match"
	"github.com/jdefrancesco/imgDitto/internal/remove"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSameDirectory = errors.New("primary and secondary directories are the same")
	ErrNotDirectory  = errors.New("not a directory")
	// ErrNested rejects trees inside one another; secondary copies would
	// then also be primaries and could match each other away.
	ErrNested = errors.New("directories are nested")
)

// Report summarizes one run.
type Report struct {
	RunID        string
	PrimaryDir   string
	SecondaryDir string
	Key          match.Key
	Primary      int
	Secondary    int
	Mapping      *dmap.Dmap
	// Removal is nil when the run stopped after matching.
	Removal *remove.Summary
	Elapsed time.Duration
}

// Progress receives stage names as the run advances. It may be nil.
type Progress func(stage string)

// Run deduplicates secondaryDir against primaryDir. Nothing is removed
// unless matching succeeds.
func Run(ctx context.Context, cfg config.Config, primaryDir, secondaryDir string, progress Progress) (*Report, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), Key: cfg.Key}
	log := dsklog.WithRun(rep.RunID)

	var err error
	if rep.PrimaryDir, err = resolveDir(primaryDir); err != nil {
		return nil, fmt.Errorf("primary directory: %w", err)
	}
	if rep.SecondaryDir, err = resolveDir(secondaryDir); err != nil {
		return nil, fmt.Errorf("secondary directory: %w", err)
	}
	if rep.PrimaryDir == rep.SecondaryDir {
		return nil, fmt.Errorf("%w: %s", ErrSameDirectory, rep.PrimaryDir)
	}
	if within(rep.PrimaryDir, rep.SecondaryDir) || within(rep.SecondaryDir, rep.PrimaryDir) {
		return nil, fmt.Errorf("%w: %s and %s", ErrNested, rep.PrimaryDir, rep.SecondaryDir)
	}
	log.Infof("Deduplicating %s against %s by %s", rep.SecondaryDir, rep.PrimaryDir, cfg.Key)

	progress("scanning")
	var primaryFiles, secondaryFiles []*dfs.Dfile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		primaryFiles, err = dwalk.Collect(gctx, rep.PrimaryDir, cfg)
		return err
	})
	g.Go(func() (err error) {
		secondaryFiles, err = dwalk.Collect(gctx, rep.SecondaryDir, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	rep.Primary, rep.Secondary = len(primaryFiles), len(secondaryFiles)
	log.Infof("Found %d primary and %d secondary images", rep.Primary, rep.Secondary)

	progress("indexing")
	store, err := index.Open(ctx, cfg.IndexPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("Closing index: %v", err)
		}
	}()
	if err := store.AddFiles(ctx, primaryFiles); err != nil {
		return nil, fmt.Errorf("index primary: %w", err)
	}
	if err := store.AddFiles(ctx, secondaryFiles); err != nil {
		return nil, fmt.Errorf("index secondary: %w", err)
	}

	progress("matching")
	res := match.Match(ctx, dwalk.Paths(primaryFiles), dwalk.Paths(secondaryFiles), store, cfg.Key,
		match.WithLimit(cfg.Concurrency))
	if err := res.Err(); err != nil {
		log.Errorf("Matching failed (%s), leaving files untouched: %v", res.Outcome, err)
		return nil, err
	}
	rep.Mapping = res.Mapping

	if !cfg.ReviewOnly {
		progress("removing")
		sum, err := remove.Remover{DryRun: cfg.DryRun}.Remove(ctx, rep.Mapping)
		rep.Removal = &sum
		if err != nil {
			rep.Elapsed = time.Since(start)
			return rep, fmt.Errorf("remove: %w", err)
		}
		log.Infof("Removed %d duplicates (%d skipped, %d failed, dry run %v)",
			len(sum.Removed), len(sum.Skipped), len(sum.Failed), sum.DryRun)
	}

	rep.Elapsed = time.Since(start)
	return rep, nil
}

func resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	return abs, nil
}

// within reports whether path lies below dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
