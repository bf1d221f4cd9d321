// Package remove deletes, or pretends to delete, the secondary copies a
// matching run found.
package remove

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/dmap"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"
)

// Summary reports what a removal pass did. In a dry run Removed lists the
// files that would have been removed.
type Summary struct {
	Removed []string
	// Skipped were already gone.
	Skipped []string
	Failed  map[string]error
	// Bytes freed (or that would be freed).
	Bytes  uint64
	DryRun bool
}

// Remover acts on a duplicate mapping. Primaries are never touched.
type Remover struct {
	DryRun bool
}

// Remove visits every secondary duplicate in m once. It stops early when
// ctx is cancelled and returns the context error with what was done so far.
func (r Remover) Remove(ctx context.Context, m *dmap.Dmap) (Summary, error) {
	sum := Summary{Failed: make(map[string]error), DryRun: r.DryRun}
	if m == nil {
		return sum, nil
	}
	err := r.removePaths(ctx, m.Secondaries(), &sum)
	return sum, err
}

// RemovePaths removes an explicit list, used by the review UI once the user
// has picked which duplicates to drop.
func (r Remover) RemovePaths(ctx context.Context, paths []string) (Summary, error) {
	sum := Summary{Failed: make(map[string]error), DryRun: r.DryRun}
	err := r.removePaths(ctx, paths, &sum)
	return sum, err
}

func (r Remover) removePaths(ctx context.Context, paths []string, sum *Summary) error {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			dsklog.Dlogger.Warnf("Removal interrupted, %d files left untouched", len(paths)-len(sum.Removed)-len(sum.Skipped)-len(sum.Failed))
			return err
		}

		size := dfs.GetFileSize(path)

		if r.DryRun {
			if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
				sum.Skipped = append(sum.Skipped, path)
				continue
			}
			dsklog.Dlogger.Infof("[dry-run] Would remove %s", path)
			sum.Removed = append(sum.Removed, path)
			sum.Bytes += size
			continue
		}

		err := os.Remove(path)
		switch {
		case err == nil:
			dsklog.Dlogger.Infof("Removed duplicate %s", path)
			sum.Removed = append(sum.Removed, path)
			sum.Bytes += size
		case errors.Is(err, fs.ErrNotExist):
			dsklog.Dlogger.Debugf("Already gone: %s", path)
			sum.Skipped = append(sum.Skipped, path)
		default:
			dsklog.Dlogger.Errorf("Failed to remove %s: %v", path, err)
			sum.Failed[path] = err
		}
	}
	return nil
}
