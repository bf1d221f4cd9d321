// dwalk is a parallel, fast directory walker that feeds image files to the
// fingerprinting stage.
package dwalk

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/jdefrancesco/imgDitto/internal/config"
	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"

	"golang.org/x/sync/semaphore"
)

// DWalk is our primary object for traversing filesystem
// in a parallel manner.
type DWalk struct {
	rootDirs []string
	wg       sync.WaitGroup

	// Channel used to communicate with the collecting goroutine.
	dFiles chan<- *dfs.Dfile
	sem    *semaphore.Weighted
	cfg    config.Config
	images dfs.ExtensionSet

	// Inodes already sent, so hardlinks are fingerprinted once.
	seenMu sync.Mutex
	seen   map[fileIdentity]struct{}
}

// NewDWalker returns a new DWalk for rootDirs. Every image found is hashed
// and sent over dFiles; the channel is closed once the walk is over.
func NewDWalker(rootDirs []string, dFiles chan<- *dfs.Dfile, cfg config.Config) *DWalk {

	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = dfs.HashSHA256
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = dfs.DefaultImageExtensions
	}

	walker := &DWalk{
		rootDirs: rootDirs,
		dFiles:   dFiles,
		cfg:      cfg,
		images:   dfs.NewExtensionSet(exts),
		seen:     make(map[fileIdentity]struct{}),
	}

	// Set semaphore to optimal value based on system resources
	optimalConcurrency := getOptimalConcurrency()
	dsklog.Dlogger.Debugf("Setting directory concurrency to %d (based on %d CPUs)", optimalConcurrency, runtime.NumCPU())
	walker.sem = semaphore.NewWeighted(int64(optimalConcurrency))
	return walker

}

// Run method kicks off the crawl. It returns immediately.
func (d *DWalk) Run(ctx context.Context) {

	for _, root := range d.rootDirs {
		d.wg.Add(1)
		go d.walkDir(ctx, root)
	}

	// Wait for all goroutines to finish.
	go func() {
		d.wg.Wait()
		close(d.dFiles)
	}()

}

// cancelled polls, checking for cancellation.
func cancelled(ctx context.Context) bool {

	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}

}

// walkDir recursively walks directories and sends images to the collector.
func (d *DWalk) walkDir(ctx context.Context, dir string) {

	defer d.wg.Done()

	if cancelled(ctx) {
		return
	}

	for _, entry := range d.dirEntries(ctx, dir) {
		name := entry.Name()
		if d.cfg.SkipHidden && strings.HasPrefix(name, ".") {
			dsklog.Dlogger.Debugf("Skipping hidden entry: %s", filepath.Join(dir, name))
			continue
		}

		if entry.IsDir() {
			d.wg.Add(1)
			go d.walkDir(ctx, filepath.Join(dir, name))
			continue
		}

		absFileName := filepath.Join(dir, name)
		if !d.images.Match(name) {
			dsklog.Dlogger.Debugf("Skipping non-image: %s", absFileName)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			dsklog.Dlogger.Debugf("Error getting file info for %s: %v", absFileName, err)
			continue
		}

		// Skip non-regular files (sockets, pipes, device files, symlinks etc.)
		if !info.Mode().IsRegular() {
			dsklog.Dlogger.Debugf("Skipping non-regular file: %s (mode: %s)", absFileName, info.Mode())
			continue
		}

		fileSize := uint(max(info.Size(), 0)) // #nosec G115
		if d.cfg.SkipEmpty && fileSize == 0 {
			dsklog.Dlogger.Debugf("Skipping empty file: %s", absFileName)
			continue
		}
		if d.cfg.MinFileSize > 0 && fileSize < d.cfg.MinFileSize {
			dsklog.Dlogger.Debugf("File %s smaller than minimum. Skipping", absFileName)
			continue
		}
		if d.cfg.MaxFileSize > 0 && fileSize >= d.cfg.MaxFileSize {
			dsklog.Dlogger.Infof("File %s larger than maximum. Skipping", absFileName)
			continue
		}

		if id, ok := getFileIdentity(info); ok && !d.markSeen(id) {
			dsklog.Dlogger.Debugf("Skipping hardlink already seen: %s", absFileName)
			continue
		}

		if !dfs.CheckFilePerms(absFileName) {
			dsklog.Dlogger.Debugf("Cannot access file. Invalid permissions: %s", absFileName)
			continue
		}

		dFileEntry, err := dfs.NewDfile(absFileName, info.Size(), d.cfg.HashAlgorithm)
		if err != nil {
			dsklog.Dlogger.Warnf("Skipping %s: %v", absFileName, err)
			continue
		}

		select {
		case d.dFiles <- dFileEntry:
		case <-ctx.Done():
			return
		}
	}
}

// markSeen records id and reports whether it was new.
func (d *DWalk) markSeen(id fileIdentity) bool {
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// dirEntries returns contents of a directory specified by dir.
// The semaphore limits concurrency; preventing system resource
// exhaustion.
func (d *DWalk) dirEntries(ctx context.Context, dir string) []os.DirEntry {

	if cancelled(ctx) {
		return nil
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer d.sem.Release(1)

	entries, err := os.ReadDir(dir)
	if err != nil {
		dsklog.Dlogger.Errorf("Directory read error: %v", err)
		return nil
	}

	return entries
}

// getOptimalConcurrency returns optimal concurrency based on system resources
func getOptimalConcurrency() int {
	procs := runtime.GOMAXPROCS(0)
	if procs < 1 {
		procs = runtime.NumCPU()
	}
	return min(procs*4, 128)
}

// Collect walks root and returns every image found, sorted by path.
func Collect(ctx context.Context, root string, cfg config.Config) ([]*dfs.Dfile, error) {
	dFiles := make(chan *dfs.Dfile)
	NewDWalker([]string{root}, dFiles, cfg).Run(ctx)

	var files []*dfs.Dfile
	for f := range dFiles {
		files = append(files, f)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].FileName() < files[j].FileName()
	})
	return files, nil
}

// Paths returns the file names of files, preserving order.
func Paths(files []*dfs.Dfile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.FileName()
	}
	return out
}
