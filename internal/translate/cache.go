package translate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var translationsBucket = []byte("translations")

// Cache memoizes successful translations across runs.
type Cache interface {
	Get(source, target, text string) (string, bool)
	Put(source, target, text, translated string) error
}

// BoltCache is a Cache stored in a single bbolt file.
type BoltCache struct {
	db *bolt.DB
}

// OpenBoltCache opens or creates the cache file at path.
func OpenBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open translation cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(translationsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init translation cache: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func cacheKey(source, target, text string) []byte {
	sum := sha256.Sum256([]byte(source + "\x00" + target + "\x00" + text))
	return []byte(hex.EncodeToString(sum[:]))
}

// Get returns the cached translation of text, if any.
func (c *BoltCache) Get(source, target, text string) (string, bool) {
	var out string
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(translationsBucket).Get(cacheKey(source, target, text)); v != nil {
			out = string(v)
		}
		return nil
	})
	return out, out != ""
}

// Put stores a translation.
func (c *BoltCache) Put(source, target, text, translated string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(translationsBucket).Put(cacheKey(source, target, text), []byte(translated))
	})
}

// Close releases the underlying file.
func (c *BoltCache) Close() error {
	return c.db.Close()
}
