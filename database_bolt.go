package sigview

import (
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// Bucket names for the bbolt backend. Keys are the same as the badger
// backend's without the prefixes.
var (
	bucketEntries = []byte("sigview-entries")
	bucketFetched = []byte("sigview-fetched")
)

// BoltDatabase is a Cache kept in a single bbolt file. It suits CGI setups
// where a badger directory lock per request is too heavy.
type BoltDatabase struct {
	db *bbolt.DB
}

var _ Cache = (*BoltDatabase)(nil)

// OpenBolt opens a bbolt database. Databases must be closed once they're done.
func OpenBolt(path string, write bool) (*BoltDatabase, error) {
	b, err := bbolt.Open(path, 0644, &bbolt.Options{
		Timeout:      time.Minute,
		FreelistType: bbolt.FreelistArrayType,
		ReadOnly:     !write,
	})
	if err != nil {
		return nil, errors.Wrap(err, "bbolt")
	}

	return &BoltDatabase{b}, nil
}

// Close closes the database.
func (db *BoltDatabase) Close() error {
	return db.db.Close()
}

// Get implements Cache.
func (db *BoltDatabase) Get(url string) (*Entry, error) {
	var e Entry

	err := db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return ErrNotCached
		}

		v := b.Get([]byte(url))
		if v == nil {
			return ErrNotCached
		}

		return errors.Wrap(decodeEntry(v, &e), "cannot decode entry")
	})
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// Put implements Cache.
func (db *BoltDatabase) Put(e *Entry) error {
	if db.db.IsReadOnly() {
		return errors.New("database not writable")
	}

	v, err := encodeEntry(e)
	if err != nil {
		return err
	}

	url := []byte(e.URL)

	tx := func(tx *bbolt.Tx) error {
		entries, err := tx.CreateBucketIfNotExists(bucketEntries)
		if err != nil {
			return errors.Wrap(err, "failed to create bucket")
		}

		fetched, err := tx.CreateBucketIfNotExists(bucketFetched)
		if err != nil {
			return errors.Wrap(err, "failed to create bucket")
		}

		if old := entries.Get(url); old != nil {
			var o Entry
			if err := decodeEntry(old, &o); err == nil {
				if err := fetched.Delete(bkey(unixToBE(uint32(o.Fetched)), url)); err != nil {
					return errors.Wrap(err, "cannot delete old index")
				}
			}
		}

		if err := entries.Put(url, v); err != nil {
			return err
		}

		return fetched.Put(bkey(unixToBE(uint32(e.Fetched)), url), []byte{})
	}

	if err = db.db.Update(tx); err != nil {
		return errors.Wrap(err, "failed to update db")
	}

	return nil
}

// Entries implements Cache.
func (db *BoltDatabase) Entries() ([]Entry, error) {
	var entries []Entry

	err := db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := decodeEntry(v, &e); err != nil {
				return errors.Wrapf(err, "cannot decode entry %q", k)
			}

			entries = append(entries, e)
			return nil
		})
	})

	return entries, err
}

// GC implements Cache.
func (db *BoltDatabase) GC(age time.Duration) (int, error) {
	if db.db.IsReadOnly() {
		return 0, errors.New("database not writable")
	}

	before := convertWithUnixZero(time.Now().Add(-age))
	var deleted int

	err := db.db.Update(func(tx *bbolt.Tx) error {
		fetched := tx.Bucket(bucketFetched)
		entries := tx.Bucket(bucketEntries)
		if fetched == nil || entries == nil {
			return nil
		}

		cs := fetched.Cursor()

		// Deleting under the cursor moves it to the next key, so keep reading
		// the first key until it is no longer stale.
		for k, _ := cs.First(); k != nil && readUnixBE(k[:4]) < before; k, _ = cs.First() {
			key := append([]byte(nil), k...)

			if err := entries.Delete(key[4:]); err != nil {
				return errors.Wrap(err, "failed to delete entry")
			}
			if err := cs.Delete(); err != nil {
				return errors.Wrap(err, "failed to delete under cursor")
			}
			deleted++
		}

		return nil
	})

	return deleted, err
}
