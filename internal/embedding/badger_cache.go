package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const vectorKeyPrefix = "vec:"

// BadgerCache persists embeddings in a BadgerDB directory so repeated feature
// texts survive process restarts.
type BadgerCache struct {
	db *badger.DB
}

// OpenBadgerCache opens (or creates) a cache at dir.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache %s: %w", dir, err)
	}
	return &BadgerCache{db: db}, nil
}

// NewBadgerCache wraps an already opened database.
func NewBadgerCache(db *badger.DB) *BadgerCache {
	return &BadgerCache{db: db}
}

// Get implements Cache.
func (c *BadgerCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	var vector []float32

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(vectorKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &vector)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached embedding: %w", err)
	}

	return vector, true, nil
}

// Put implements Cache.
func (c *BadgerCache) Put(_ context.Context, key string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(vectorKeyPrefix+key), data)
	})
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
