package sigview

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

var backends = []string{BackendBadger, BackendBolt}

// openTestCache opens an empty writable cache of the given backend that is
// closed when the test ends.
func openTestCache(t testing.TB, backend string) Cache {
	t.Helper()

	path := t.TempDir()
	if backend == BackendBolt {
		path = filepath.Join(path, "cache.db")
	}

	cache, err := OpenCache(CacheConfig{Backend: backend, Path: path, LogLevel: "none"}, true)
	if err != nil {
		t.Fatal("failed to open cache:", err)
	}

	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Error("failed to close cache:", err)
		}
	})

	return cache
}

func testEntry(url string, fetched time.Time) *Entry {
	return &Entry{
		URL:     url,
		Fetched: fetched.Unix(),
		Size:    42,
		Set: SignalSet{
			Group: "k",
			Traces: []RawTrace{
				{Name: "zeta", Values: []float64{0.25, 1e10, -3}},
				{Name: "alpha", Values: []float64{7}},
			},
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			cache := openTestCache(t, backend)

			if _, err := cache.Get("http://x/missing.json"); !errors.Is(err, ErrNotCached) {
				t.Fatalf("expected ErrNotCached, got %v", err)
			}

			want := testEntry("http://x/a.json", time.Now())
			if err := cache.Put(want); err != nil {
				t.Fatal("failed to put:", err)
			}

			got, err := cache.Get(want.URL)
			if err != nil {
				t.Fatal("failed to get:", err)
			}

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("entry mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCacheEntries(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			cache := openTestCache(t, backend)
			now := time.Now()

			for _, url := range []string{"http://x/c.json", "http://x/a.json", "http://x/b.json"} {
				if err := cache.Put(testEntry(url, now)); err != nil {
					t.Fatal("failed to put:", err)
				}
			}

			entries, err := cache.Entries()
			if err != nil {
				t.Fatal("failed to list:", err)
			}

			var urls []string
			for _, e := range entries {
				urls = append(urls, e.URL)
			}

			want := []string{"http://x/a.json", "http://x/b.json", "http://x/c.json"}
			if diff := cmp.Diff(want, urls); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCacheGC(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			cache := openTestCache(t, backend)
			now := time.Now()

			puts := []*Entry{
				testEntry("http://x/old.json", now.Add(-72*time.Hour)),
				testEntry("http://x/new.json", now),
				// Refreshed: the stale index of the first put must not delete it.
				testEntry("http://x/refreshed.json", now.Add(-72*time.Hour)),
				testEntry("http://x/refreshed.json", now.Add(-time.Hour)),
			}

			for _, e := range puts {
				if err := cache.Put(e); err != nil {
					t.Fatal("failed to put:", err)
				}
			}

			n, err := cache.GC(24 * time.Hour)
			if err != nil {
				t.Fatal("failed to gc:", err)
			}
			if n != 1 {
				t.Errorf("expected 1 entry collected, got %d", n)
			}

			if _, err := cache.Get("http://x/old.json"); !errors.Is(err, ErrNotCached) {
				t.Errorf("old entry should be gone, got %v", err)
			}

			for _, url := range []string{"http://x/new.json", "http://x/refreshed.json"} {
				if _, err := cache.Get(url); err != nil {
					t.Errorf("entry %s should survive gc: %v", url, err)
				}
			}
		})
	}
}

func TestDecodeEntryVersions(t *testing.T) {
	want := testEntry("http://x/a.json", time.Unix(1_600_000_000, 0))

	plain, err := json.Marshal(want)
	if err != nil {
		t.Fatal("failed to marshal:", err)
	}

	encoded, err := encodeEntry(want)
	if err != nil {
		t.Fatal("failed to encode:", err)
	}

	inputs := map[string][]byte{
		"unprefixed JSON": plain,
		"version 1":       append([]byte{versionBytePrefix, byte(Version1)}, plain...),
		"version 2":       encoded,
	}

	for name, b := range inputs {
		var got Entry
		if err := decodeEntry(b, &got); err != nil {
			t.Errorf("%s: failed to decode: %v", name, err)
			continue
		}
		if diff := cmp.Diff(*want, got); diff != "" {
			t.Errorf("%s: entry mismatch (-want +got):\n%s", name, diff)
		}
	}

	var e Entry
	if err := decodeEntry([]byte{versionBytePrefix, 0x7F}, &e); err == nil {
		t.Error("expected unknown version to fail")
	}
}

func TestOpenCacheDisabled(t *testing.T) {
	cache, err := OpenCache(CacheConfig{Backend: BackendBadger}, true)
	if err != nil || cache != nil {
		t.Errorf("expected no cache without a path, got %v, %v", cache, err)
	}
}
