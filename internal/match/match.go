// Package match joins a primary and a secondary list of images through the
// fingerprint index and reports which secondary files duplicate each
// primary.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jdefrancesco/imgDitto/internal/dmap"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"

	"golang.org/x/sync/errgroup"
)

// Lookuper answers fingerprint equality queries. Lookup returns every other
// indexed path whose value under key equals that of path. It must be safe
// to call from many goroutines at once.
type Lookuper interface {
	Lookup(ctx context.Context, path string, key Key) ([]string, error)
}

// Outcome tags a Result.
type Outcome int

const (
	OK Outcome = iota
	InvalidInput
	StoreFailure
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case InvalidInput:
		return "invalid input"
	case StoreFailure:
		return "store failure"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

var (
	ErrInvalidInput     = errors.New("invalid matching input")
	ErrStoreQueryFailed = errors.New("fingerprint store query failed")
)

// Result is the outcome of a matching run. Mapping is set only for OK and
// Cause only for StoreFailure.
type Result struct {
	Outcome Outcome
	Mapping *dmap.Dmap
	Cause   error
}

// Err converts the result into an error, nil for OK.
func (r Result) Err() error {
	switch r.Outcome {
	case OK:
		return nil
	case InvalidInput:
		return ErrInvalidInput
	}
	if r.Cause != nil {
		return r.Cause
	}
	return ErrStoreQueryFailed
}

func invalid(reason string, args ...any) Result {
	dsklog.Dlogger.Warnf("Rejecting match input: "+reason, args...)
	return Result{Outcome: InvalidInput}
}

// Option tunes a Match call.
type Option func(*options)

type options struct {
	limit int
}

// WithLimit bounds the number of lookups in flight. n <= 0 means one
// goroutine per primary.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

type completed struct {
	primary string
	matches []string
}

// Match finds, for each primary path, the secondary paths that share its
// fingerprint under key. Lookups run concurrently; the mapping lists
// primaries in the order their lookups finished.
//
// key has no default here: the zero Key, like any unrecognized key, yields
// InvalidInput. Only MatchRequest falls back to ContentHash when the key is
// omitted. A nil store also yields InvalidInput. Any failed lookup
// cancels the rest and yields StoreFailure without a mapping.
func Match(ctx context.Context, primary, secondary []string, store Lookuper, key Key, opts ...Option) Result {
	if !key.Valid() {
		return invalid("unrecognized fingerprint key %d", int(key))
	}
	if store == nil {
		return invalid("no fingerprint store")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	secondarySet := make(map[string]struct{}, len(secondary))
	for _, s := range secondary {
		secondarySet[s] = struct{}{}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}

	var (
		mu   sync.Mutex
		done = make([]completed, 0, len(primary))
		seen = make(map[string]struct{}, len(primary))
	)

	for _, p := range primary {
		// A primary listed twice is looked up once.
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		g.Go(func() error {
			// Another lookup already failed; don't bother the store.
			if err := gctx.Err(); err != nil {
				return err
			}

			rows, err := store.Lookup(gctx, p, key)
			if err != nil {
				return fmt.Errorf("lookup %s: %w", p, err)
			}

			var matches []string
			for _, q := range rows {
				if q == p {
					continue
				}
				if _, ok := secondarySet[q]; ok {
					matches = append(matches, q)
				}
			}
			dsklog.Dlogger.Debugf("Lookup %s (%s): %d candidates, %d in secondary", p, key, len(rows), len(matches))

			mu.Lock()
			done = append(done, completed{primary: p, matches: matches})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		dsklog.Dlogger.Errorf("Matching aborted after %s: %v", time.Since(start), err)
		return Result{
			Outcome: StoreFailure,
			Cause:   fmt.Errorf("%w: %w", ErrStoreQueryFailed, err),
		}
	}

	mapping, _ := dmap.NewDmap()
	for _, c := range done {
		mapping.Add(c.primary, c.matches)
	}

	dsklog.Dlogger.Infof("Matched %d primaries against %d secondaries by %s: %d with duplicates (%s)",
		len(seen), len(secondarySet), key, mapping.MapSize(), time.Since(start))

	return Result{Outcome: OK, Mapping: mapping}
}
