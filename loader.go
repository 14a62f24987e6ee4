package sigview

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Loader fetches blobs and keeps them in an optional Cache.
type Loader struct {
	Client *http.Client
	// Cache may be nil to always fetch.
	Cache Cache
	// TTL is how long a cached entry is served. Zero never expires entries.
	TTL time.Duration
	// MaxBytes caps the size of a fetched blob.
	MaxBytes int64
	// AllowFiles permits file:// URLs and bare paths. It must stay off for
	// loaders driven by untrusted query strings.
	AllowFiles bool
	// ReadOnly serves blobs from the cache but never stores fetched ones.
	ReadOnly bool

	now func() time.Time
}

// NewLoader creates a loader from the configuration.
func NewLoader(cfg Config, cache Cache) *Loader {
	return &Loader{
		Client:   &http.Client{Timeout: time.Duration(cfg.Fetch.Timeout)},
		Cache:    cache,
		TTL:      time.Duration(cfg.Cache.TTL),
		MaxBytes: cfg.Fetch.MaxBytes,
		now:      time.Now,
	}
}

// Load returns the blob at the URL, from the cache if a fresh entry exists.
// The fetch is aborted when ctx is cancelled.
func (l *Loader) Load(ctx context.Context, url string) (*Entry, error) {
	if l.Cache != nil {
		e, err := l.Cache.Get(url)
		switch {
		case err == nil && l.fresh(e):
			return e, nil
		case err != nil && !errors.Is(err, ErrNotCached):
			log.Println("cache read failed, fetching:", err)
		}
	}

	return l.Refresh(ctx, url)
}

// Refresh fetches the blob regardless of the cache and stores it. A failure
// to store is logged and does not fail the load.
func (l *Loader) Refresh(ctx context.Context, url string) (*Entry, error) {
	b, err := l.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	set, err := ParseSignalSet(b)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		URL:     url,
		Fetched: l.clock().Unix(),
		Size:    len(b),
		Set:     set,
	}

	if l.Cache != nil && !l.ReadOnly {
		if err := l.Cache.Put(e); err != nil {
			log.Printf("failed to cache %s: %v", url, err)
		}
	}

	return e, nil
}

func (l *Loader) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}
	return l.now()
}

func (l *Loader) fresh(e *Entry) bool {
	if l.TTL <= 0 {
		return true
	}
	return l.clock().Sub(e.FetchedAt()) < l.TTL
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, &LoadFailureError{URL: rawURL, Err: errors.New("empty URL")}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &LoadFailureError{URL: rawURL, Err: err}
	}

	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, rawURL)
	case "file", "":
		if !l.AllowFiles {
			return nil, &LoadFailureError{URL: rawURL, Err: errors.New("local files are not allowed")}
		}

		path := rawURL
		if u.Scheme == "file" {
			path = u.Path
		}

		return l.readFile(path)
	default:
		return nil, &LoadFailureError{URL: rawURL, Err: errors.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, &LoadFailureError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadFailureError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadFailureError{URL: rawURL, Status: resp.StatusCode}
	}

	b, err := l.readLimited(resp.Body)
	if err != nil {
		return nil, &LoadFailureError{URL: rawURL, Err: err}
	}

	return b, nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadFailureError{URL: path, Err: err}
	}
	defer f.Close()

	b, err := l.readLimited(f)
	if err != nil {
		return nil, &LoadFailureError{URL: path, Err: err}
	}

	return b, nil
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	if l.MaxBytes <= 0 {
		return io.ReadAll(r)
	}

	b, err := io.ReadAll(io.LimitReader(r, l.MaxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "cannot read body")
	}

	if int64(len(b)) > l.MaxBytes {
		return nil, errors.Errorf("blob exceeds %d bytes", l.MaxBytes)
	}

	return b, nil
}
