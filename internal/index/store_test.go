package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/jdefrancesco/imgDitto/internal/dfs"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"
	"github.com/jdefrancesco/imgDitto/internal/match"
)

func TestMain(m *testing.M) {
	dsklog.InitializeDlogger("/dev/null")
	os.Exit(m.Run())
}

// mustOpen opens an index under t.TempDir and registers cleanup.
func mustOpen(t testing.TB) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedScenario(t testing.TB, s *Store) {
	t.Helper()
	err := s.Add(context.Background(),
		Record{Path: "/a/1.jpg", Hash: "H1", Size: 1024},
		Record{Path: "/b/1.jpg", Hash: "H1", Size: 1024},
		Record{Path: "/a/2.jpg", Hash: "H2", Size: 1024},
		Record{Path: "/b/3.jpg", Hash: "H3", Size: 1024},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestLookup(t *testing.T) {
	s := mustOpen(t)
	seedScenario(t, s)
	ctx := context.Background()

	got, err := s.Lookup(ctx, "/a/1.jpg", match.ContentHash)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/b/1.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("hash lookup = %v, want %v", got, want)
	}

	got, err = s.Lookup(ctx, "/a/1.jpg", match.SizeBytes)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/a/2.jpg", "/b/1.jpg", "/b/3.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("size lookup = %v, want %v", got, want)
	}

	got, err = s.Lookup(ctx, "/not/indexed.jpg", match.ContentHash)
	if err != nil || len(got) != 0 {
		t.Errorf("unindexed lookup = %v, %v", got, err)
	}

	if _, err := s.Lookup(ctx, "/a/1.jpg", match.Key(0)); !errors.Is(err, match.ErrUnknownKey) {
		t.Errorf("bad key: got %v", err)
	}
}

func TestLookupPathsAreParameters(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()
	odd := []string{
		`/a/it's.jpg`,
		`/b/"quoted".jpg`,
		`/b/x" OR 1=1 --.jpg`,
	}
	for _, p := range odd {
		if err := s.Add(ctx, Record{Path: p, Hash: "same", Size: 1}); err != nil {
			t.Fatalf("Add(%q): %v", p, err)
		}
	}
	if err := s.Add(ctx, Record{Path: "/c/other.jpg", Hash: "other", Size: 2}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Lookup(ctx, odd[0], match.ContentHash)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("lookup = %v, want the two other quoted paths", got)
	}
}

func TestAddValidation(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()
	bad := []Record{
		{Path: "", Hash: "h", Size: 1},
		{Path: "/x", Hash: "", Size: 1},
		{Path: "/x", Hash: "h", Size: -1},
	}
	for _, r := range bad {
		if err := s.Add(ctx, r); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Add(%+v) = %v, want ErrInvalidRecord", r, err)
		}
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count = %d after rejected adds", n)
	}
}

func TestAddReplacesAndGet(t *testing.T) {
	s := mustOpen(t)
	ctx := context.Background()

	if err := s.Add(ctx, Record{Path: "/a.png", Hash: "ABC", Size: 3}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, Record{Path: "/a.png", Hash: "def", Size: 4}); err != nil {
		t.Fatal(err)
	}

	r, ok, err := s.Get(ctx, "/a.png")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if r.Hash != "def" || r.Size != 4 {
		t.Errorf("record = %+v", r)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	if _, ok, err := s.Get(ctx, "/missing.png"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v", ok, err)
	}
}

func TestSecondOpenIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	first, err := Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	if second, err := Open(context.Background(), path); !errors.Is(err, ErrLocked) {
		if second != nil {
			second.Close()
		}
		t.Fatalf("second Open = %v, want ErrLocked", err)
	}
}

func TestTempIndexRemovedOnClose(t *testing.T) {
	s, err := Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(s.Path())
	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("temp index missing: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("temp dir %s still exists", dir)
	}
}

func TestConcurrentLookups(t *testing.T) {
	s := mustOpen(t)
	seedScenario(t, s)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := match.ContentHash
			if i%2 == 1 {
				key = match.SizeBytes
			}
			if _, err := s.Lookup(context.Background(), "/a/1.jpg", key); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestAddFilesBatches(t *testing.T) {
	s := mustOpen(t)
	dir := t.TempDir()

	var files []*dfs.Dfile
	for i := range addBatch + 3 {
		p := filepath.Join(dir, fmt.Sprintf("%04d.jpg", i))
		data := []byte{byte(i % 7)}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		d, err := dfs.NewDfile(p, int64(len(data)), dfs.HashSHA256)
		if err != nil {
			t.Fatal(err)
		}
		files = append(files, d)
	}

	if err := s.AddFiles(context.Background(), files); err != nil {
		t.Fatalf("AddFiles: %v", err)
	}
	if n, _ := s.Count(context.Background()); n != len(files) {
		t.Errorf("Count = %d, want %d", n, len(files))
	}
}

// The engine running against the real index.
func TestMatchAgainstIndex(t *testing.T) {
	s := mustOpen(t)
	seedScenario(t, s)
	ctx := context.Background()
	primary := []string{"/a/1.jpg", "/a/2.jpg"}
	secondary := []string{"/b/1.jpg", "/b/3.jpg"}

	r := match.Match(ctx, primary, secondary, s, match.ContentHash)
	if r.Outcome != match.OK {
		t.Fatalf("outcome = %v: %v", r.Outcome, r.Cause)
	}
	if want := map[string][]string{"/a/1.jpg": {"/b/1.jpg"}}; !reflect.DeepEqual(r.Mapping.GetMap(), want) {
		t.Errorf("hash mapping = %v, want %v", r.Mapping.GetMap(), want)
	}

	r = match.Match(ctx, primary, secondary, s, match.SizeBytes, match.WithLimit(1))
	want := map[string][]string{
		"/a/1.jpg": {"/b/1.jpg", "/b/3.jpg"},
		"/a/2.jpg": {"/b/1.jpg", "/b/3.jpg"},
	}
	if r.Outcome != match.OK || !reflect.DeepEqual(r.Mapping.GetMap(), want) {
		t.Errorf("size mapping = %v (%v), want %v", r.Mapping, r.Outcome, want)
	}
}

func TestMatchAgainstClosedIndexFails(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	seedScenario(t, s)
	s.Close()

	r := match.Match(context.Background(), []string{"/a/1.jpg"}, []string{"/b/1.jpg"}, s, match.ContentHash)
	if r.Outcome != match.StoreFailure || r.Mapping != nil {
		t.Fatalf("got %+v, want StoreFailure without mapping", r)
	}
	if !errors.Is(r.Cause, ErrClosed) {
		t.Fatalf("cause = %v, want ErrClosed", r.Cause)
	}
}

func TestOpenExistingRefusesMissingIndex(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "typo", "index.db")

	for _, path := range []string{missing, "", dir} {
		if s, err := OpenExisting(context.Background(), path); err == nil {
			s.Close()
			t.Errorf("OpenExisting(%q) succeeded", path)
		}
	}
	if _, err := OpenExisting(context.Background(), missing); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
	if _, err := os.Stat(filepath.Dir(missing)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("OpenExisting created %s", filepath.Dir(missing))
	}
}

func TestOpenExistingReadsPopulatedIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	seedScenario(t, s)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenExisting(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenExisting: %v", err)
	}
	defer s.Close()
	if n, err := s.Count(context.Background()); err != nil || n != 3 {
		t.Errorf("Count = %d, %v; want 3", n, err)
	}
}

func TestCloseWhileMatching(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	seedScenario(t, s)

	var primary []string
	for range 50 {
		primary = append(primary, "/a/1.jpg", "/a/2.jpg")
	}

	var wg sync.WaitGroup
	results := make([]match.Result, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = match.Match(context.Background(), primary[i:], []string{"/b/1.jpg"}, s, match.ContentHash)
		}()
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	wg.Wait()

	for i, r := range results {
		switch r.Outcome {
		case match.OK:
		case match.StoreFailure:
			if !errors.Is(r.Cause, ErrClosed) {
				t.Errorf("result %d cause = %v, want ErrClosed", i, r.Cause)
			}
		default:
			t.Errorf("result %d outcome = %v", i, r.Outcome)
		}
	}
}
