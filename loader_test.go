package sigview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
)

const testBlob = `{"k": {"A": [1, 2, 3], "B": [4, 5, 6]}}`

// blobServer serves blobs by path and counts requests.
func blobServer(t *testing.T, blobs map[string]string) (*httptest.Server, *int32) {
	t.Helper()

	var hits int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)

		blob, ok := blobs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(blob))
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func testLoader(cache Cache) *Loader {
	return NewLoader(DefaultConfig(), cache)
}

func TestLoaderFetch(t *testing.T) {
	srv, _ := blobServer(t, map[string]string{"/a.json": testBlob})

	e, err := testLoader(nil).Load(context.Background(), srv.URL+"/a.json")
	if err != nil {
		t.Fatal("failed to load:", err)
	}

	if e.Set.Group != "k" || len(e.Set.Traces) != 2 {
		t.Errorf("unexpected set %+v", e.Set)
	}
	if e.Size != len(testBlob) {
		t.Errorf("expected size %d, got %d", len(testBlob), e.Size)
	}
}

func TestLoaderFailures(t *testing.T) {
	srv, _ := blobServer(t, map[string]string{"/bad.json": `{"k": `})
	l := testLoader(nil)
	ctx := context.Background()

	var load *LoadFailureError
	if _, err := l.Load(ctx, srv.URL+"/missing.json"); !errors.As(err, &load) || load.Status != 404 {
		t.Errorf("expected 404 LoadFailureError, got %v", err)
	}

	var parse *ParseError
	if _, err := l.Load(ctx, srv.URL+"/bad.json"); !errors.As(err, &parse) {
		t.Errorf("expected ParseError, got %v", err)
	}

	if _, err := l.Load(ctx, "/etc/passwd"); !errors.As(err, &load) {
		t.Errorf("expected local files to be refused, got %v", err)
	}

	if _, err := l.Load(ctx, "gopher://x/y"); !errors.As(err, &load) {
		t.Errorf("expected unsupported scheme to fail, got %v", err)
	}

	l.MaxBytes = 4
	srv2, _ := blobServer(t, map[string]string{"/a.json": testBlob})
	if _, err := l.Load(ctx, srv2.URL+"/a.json"); !errors.As(err, &load) {
		t.Errorf("expected oversized blob to fail, got %v", err)
	}
}

func TestLoaderCancelled(t *testing.T) {
	srv, _ := blobServer(t, map[string]string{"/a.json": testBlob})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var load *LoadFailureError
	if _, err := testLoader(nil).Load(ctx, srv.URL+"/a.json"); !errors.As(err, &load) {
		t.Errorf("expected cancelled load to fail, got %v", err)
	}
}

func TestLoaderFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.json")
	if err := os.WriteFile(path, []byte(testBlob), 0644); err != nil {
		t.Fatal(err)
	}

	l := testLoader(nil)
	l.AllowFiles = true

	for _, u := range []string{path, "file://" + path} {
		e, err := l.Load(context.Background(), u)
		if err != nil {
			t.Errorf("failed to load %s: %v", u, err)
			continue
		}
		if len(e.Set.Traces) != 2 {
			t.Errorf("unexpected traces from %s: %+v", u, e.Set.Traces)
		}
	}
}

func TestLoaderCache(t *testing.T) {
	srv, hits := blobServer(t, map[string]string{"/a.json": testBlob})
	url := srv.URL + "/a.json"

	now := time.Unix(1_700_000_000, 0)

	l := testLoader(openTestCache(t, BackendBolt))
	l.TTL = time.Hour
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := l.Load(context.Background(), url); err != nil {
			t.Fatal("failed to load:", err)
		}
	}

	if n := atomic.LoadInt32(hits); n != 1 {
		t.Fatalf("expected 1 fetch while fresh, got %d", n)
	}

	now = now.Add(2 * time.Hour)

	e, err := l.Load(context.Background(), url)
	if err != nil {
		t.Fatal("failed to load:", err)
	}

	if n := atomic.LoadInt32(hits); n != 2 {
		t.Errorf("expected a refetch after expiry, got %d fetches", n)
	}
	if !e.FetchedAt().Equal(now) {
		t.Errorf("entry fetched at %v, want %v", e.FetchedAt(), now)
	}
}

func TestLoaderReadOnly(t *testing.T) {
	srv, hits := blobServer(t, map[string]string{"/a.json": testBlob})
	url := srv.URL + "/a.json"

	cache := openTestCache(t, BackendBadger)

	l := testLoader(cache)
	l.ReadOnly = true

	for i := 0; i < 2; i++ {
		if _, err := l.Load(context.Background(), url); err != nil {
			t.Fatal("failed to load:", err)
		}
	}

	if n := atomic.LoadInt32(hits); n != 2 {
		t.Errorf("expected every load to fetch, got %d fetches", n)
	}
	if _, err := cache.Get(url); !errors.Is(err, ErrNotCached) {
		t.Errorf("read-only loader stored the blob: %v", err)
	}
}
