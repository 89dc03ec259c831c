package stripe

import (
	"sync"
	"time"

	bolt "github.com/boltdb/bolt"
)

// CursorStore persists paginator cursors so a walk can resume after a restart.
type CursorStore interface {
	// LoadCursor returns the stored cursor, or "" when none is stored.
	LoadCursor(key string) (string, error)
	SaveCursor(key, cursor string) error
}

// MemoryCursorStore keeps cursors in process memory.
type MemoryCursorStore struct {
	mu      sync.Mutex
	cursors map[string]string
}

// NewMemoryCursorStore returns an empty store.
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]string)}
}

// LoadCursor implements CursorStore.
func (s *MemoryCursorStore) LoadCursor(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[key], nil
}

// SaveCursor implements CursorStore.
func (s *MemoryCursorStore) SaveCursor(key, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[key] = cursor
	return nil
}

const cursorBucket = "stripe_cursors"

// BoltCursorStore keeps cursors in a BoltDB file, one key per paginated walk.
type BoltCursorStore struct {
	db *bolt.DB
}

// OpenBoltCursorStore opens (or creates) the database at path and ensures the
// cursor bucket exists.
func OpenBoltCursorStore(path string) (*BoltCursorStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cursorBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltCursorStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltCursorStore) Close() error {
	return s.db.Close()
}

// LoadCursor implements CursorStore.
func (s *BoltCursorStore) LoadCursor(key string) (string, error) {
	var cursor string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(cursorBucket)).Get([]byte(key)); v != nil {
			cursor = string(v)
		}
		return nil
	})
	return cursor, err
}

// SaveCursor implements CursorStore. Writing the stored value again is a no-op.
func (s *BoltCursorStore) SaveCursor(key, cursor string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cursorBucket))
		if existing := b.Get([]byte(key)); existing != nil && string(existing) == cursor {
			return nil
		}
		return b.Put([]byte(key), []byte(cursor))
	})
}
