package sigview

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

// Key prefixes. Every entry is stored under bEntries+URL, and its fetch time
// is indexed under bFetched+BE32(unix)+URL so that GC can walk entries oldest
// first.
var (
	bEntries = []byte("sigview-entries:")
	bFetched = []byte("sigview-fetched:")
)

// Database is a badger-backed Cache. It is the default cache backend.
type Database struct {
	db *badger.DB
	ro bool
}

var _ Cache = (*Database)(nil)

// Open opens a badger database in the directory at path. Databases must be
// closed once they're done. The logger may be nil to silence badger.
func Open(path string, write bool, logger badger.Logger) (*Database, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(!write).
		WithLogger(logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "badger")
	}

	return &Database{db: db, ro: !write}, nil
}

// Close closes the database.
func (db *Database) Close() error {
	return db.db.Close()
}

// Get implements Cache.
func (db *Database) Get(url string) (*Entry, error) {
	var e Entry

	err := db.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(bkey(bEntries, []byte(url)))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotCached
			}
			return errors.Wrap(err, "cannot get entry")
		}

		return item.Value(func(v []byte) error {
			return errors.Wrap(decodeEntry(v, &e), "cannot decode entry")
		})
	})
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// Put implements Cache.
func (db *Database) Put(e *Entry) error {
	if db.ro {
		return errors.New("database not writable")
	}

	v, err := encodeEntry(e)
	if err != nil {
		return err
	}

	url := []byte(e.URL)

	err = db.db.Update(func(tx *badger.Txn) error {
		// Drop the fetch index of the entry being replaced.
		item, err := tx.Get(bkey(bEntries, url))
		if err == nil {
			var old Entry
			if err := item.Value(func(v []byte) error { return decodeEntry(v, &old) }); err == nil {
				if err := tx.Delete(fetchedKey(old.Fetched, url)); err != nil {
					return errors.Wrap(err, "cannot delete old index")
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return errors.Wrap(err, "cannot get old entry")
		}

		if err := tx.Set(bkey(bEntries, url), v); err != nil {
			return errors.Wrap(err, "cannot set entry")
		}

		return tx.Set(fetchedKey(e.Fetched, url), nil)
	})
	if err != nil {
		return errors.Wrap(err, "failed to update db")
	}

	return nil
}

// Entries implements Cache.
func (db *Database) Entries() ([]Entry, error) {
	var entries []Entry

	err := db.db.View(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{
			Prefix:         bEntries,
			PrefetchValues: true,
			PrefetchSize:   32,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry

			if err := it.Item().Value(func(v []byte) error { return decodeEntry(v, &e) }); err != nil {
				return errors.Wrapf(err, "cannot decode entry %q", bkeyTrim(it.Item().Key(), bEntries))
			}

			entries = append(entries, e)
		}

		return nil
	})

	return entries, err
}

// GC implements Cache.
func (db *Database) GC(age time.Duration) (int, error) {
	if db.ro {
		return 0, errors.New("database not writable")
	}

	before := convertWithUnixZero(time.Now().Add(-age))

	var stale [][]byte

	err := db.db.View(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{Prefix: bFetched})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := bkeyTrim(it.Item().Key(), bFetched)
			if readUnixBE(key[:4]) >= before {
				break
			}

			stale = append(stale, it.Item().KeyCopy(nil))
		}

		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "cannot scan index")
	}

	err = db.db.Update(func(tx *badger.Txn) error {
		for _, k := range stale {
			url := bkeyTrim(k, bFetched)[4:]

			if err := tx.Delete(k); err != nil {
				return errors.Wrap(err, "failed to delete index")
			}
			if err := tx.Delete(bkey(bEntries, url)); err != nil {
				return errors.Wrap(err, "failed to delete entry")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(stale), nil
}

func fetchedKey(unix int64, url []byte) []byte {
	return bkey(bFetched, unixToBE(uint32(unix)), url)
}

// bkey joins the prefix and the given parts into a new key.
func bkey(prefix []byte, parts ...[]byte) []byte {
	n := len(prefix)
	for _, part := range parts {
		n += len(part)
	}

	key := make([]byte, 0, n)
	key = append(key, prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}

	return key
}

func bkeyTrim(key, prefix []byte) []byte {
	return bytes.TrimPrefix(key, prefix)
}

func unixToBE(unix uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b[:], unix)
	return b
}

func readUnixBE(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// convertWithUnixZero converts a time.Time to Unix, or if time.Time is zero or
// before the epoch, then 0 is returned.
func convertWithUnixZero(t time.Time) uint32 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	return uint32(t.Unix())
}
