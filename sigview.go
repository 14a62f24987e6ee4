// Package sigview loads time-series signal blobs and prepares them for
// plotting. It also provides the blob cache shared by the sigview commands.
package sigview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"git.unix.lgbt/diamondburned/sigview/internal/badgerlog"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Version is the type for the version of the cache entry format.
type Version uint8

const (
	_ Version = iota
	Version1  // JSON
	Version2  // CBOR
)

// this is never a valid JSON character
const versionBytePrefix = 0xFE

// CurrentVersion is the version that entries will be written as.
const CurrentVersion = Version2

// Entry is a cached blob.
type Entry struct {
	URL string
	// Fetched is the Unix time in seconds of when the blob was fetched.
	Fetched int64
	// Size is the size of the blob in bytes as it was fetched.
	Size int
	Set  SignalSet
}

// FetchedAt returns the time the blob was fetched.
func (e Entry) FetchedAt() time.Time { return time.Unix(e.Fetched, 0) }

// Cache stores fetched blobs by URL.
type Cache interface {
	// Get returns the entry for the URL or ErrNotCached.
	Get(url string) (*Entry, error)
	// Put stores the entry, replacing any entry with the same URL.
	Put(e *Entry) error
	// Entries returns all entries ordered by URL.
	Entries() ([]Entry, error)
	// GC deletes entries fetched longer than age ago and returns how many were
	// deleted.
	GC(age time.Duration) (int, error)
	Close() error
}

// OpenCache opens the cache described by cfg. If cfg.Path is empty, a nil
// Cache is returned without an error.
func OpenCache(cfg CacheConfig, write bool) (Cache, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	switch cfg.Backend {
	case BackendBolt:
		db, err := OpenBolt(cfg.Path, write)
		if err != nil {
			return nil, err
		}
		return db, nil

	case BackendBadger, "":
		level, err := badgerlog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, errors.Wrap(err, "invalid cache log level")
		}

		db, err := Open(cfg.Path, write, badgerlog.NewStdLogger(level))
		if err != nil {
			return nil, err
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func encodeEntry(e *Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(8192)
	err := encodeEntryBuf(e, &buf)
	return buf.Bytes(), err
}

func encodeEntryBuf(e *Entry, buf *bytes.Buffer) error {
	buf.WriteByte(versionBytePrefix)
	buf.WriteByte(byte(CurrentVersion))

	if err := cbor.NewEncoder(buf).Encode(e); err != nil {
		return errors.Wrap(err, "failed to marshal")
	}

	return nil
}

// decodeEntry decodes a stored entry. Values without a version prefix are
// plain JSON.
func decodeEntry(b []byte, dst *Entry) (err error) {
	if len(b) < 2 || b[0] != versionBytePrefix {
		err = json.Unmarshal(b, dst)
		return
	}

	version := Version(b[1])
	b = b[2:]

	switch version {
	case Version1:
		err = json.Unmarshal(b, dst)
	case Version2:
		err = cbor.Unmarshal(b, dst)
	default:
		err = fmt.Errorf("unknown version %d", version)
	}

	return
}
