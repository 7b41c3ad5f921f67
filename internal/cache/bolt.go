package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.etcd.io/bbolt"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/telemetry"
	"github.com/cloudscope/cloudscope/types"
)

var bucketResources = []byte("resources")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope wraps a stored collection with its write time so expiry is
// decided at read time.
type envelope struct {
	StoredAt   time.Time                `json:"stored_at"`
	Collection types.ResourceCollection `json:"collection"`
}

// BoltCache is a file-backed ResourceCache. Expired entries read as
// misses and are deleted lazily on the next Get.
type BoltCache struct {
	db  *bbolt.DB
	ttl time.Duration
	log *telemetry.Logger
}

// NewBoltCache opens (or creates) the cache file and its bucket. An
// open failure is returned so the caller can fall back to Disabled().
func NewBoltCache(path string, ttl time.Duration, log *telemetry.Logger) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheBackend, "create cache directory")
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheBackend, "open cache database")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResources)
		return err
	})
	if err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeCacheBackend, "initialize cache bucket")
	}

	return &BoltCache{db: db, ttl: ttl, log: log}, nil
}

// Get loads the profile's cached collection. Backend errors, missing
// entries, undecodable entries and expired entries all degrade to a
// miss.
func (c *BoltCache) Get(ctx context.Context, profileID int64) (types.ResourceCollection, bool) {
	var raw []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		if value := tx.Bucket(bucketResources).Get(cacheKey(profileID)); value != nil {
			raw = make([]byte, len(value))
			copy(raw, value)
		}
		return nil
	})
	if err != nil {
		c.log.LogCacheError(ctx, "get", profileID, err)
		telemetry.RecordCache(ctx, false, false)
		return nil, false
	}
	if raw == nil {
		telemetry.RecordCache(ctx, false, false)
		return nil, false
	}

	var entry envelope
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.LogCacheError(ctx, "decode", profileID, err)
		c.deleteEntry(ctx, profileID)
		telemetry.RecordCache(ctx, false, false)
		return nil, false
	}

	if time.Since(entry.StoredAt) > c.ttl {
		c.deleteEntry(ctx, profileID)
		telemetry.RecordCache(ctx, false, false)
		return nil, false
	}

	telemetry.RecordCache(ctx, true, false)
	return entry.Collection, true
}

// Set stores the collection under the profile's key, stamped now.
func (c *BoltCache) Set(ctx context.Context, profileID int64, collection types.ResourceCollection) error {
	raw, err := json.Marshal(envelope{StoredAt: time.Now().UTC(), Collection: collection})
	if err != nil {
		c.log.LogCacheError(ctx, "encode", profileID, err)
		return apperrors.Wrap(err, apperrors.CodeCacheBackend, "encode cache entry")
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResources).Put(cacheKey(profileID), raw)
	})
	if err != nil {
		c.log.LogCacheError(ctx, "set", profileID, err)
		return apperrors.Wrap(err, apperrors.CodeCacheBackend, "write cache entry")
	}

	telemetry.RecordCache(ctx, false, true)
	return nil
}

// Invalidate removes the profile's entry. Deleting an absent key is not
// an error.
func (c *BoltCache) Invalidate(ctx context.Context, profileID int64) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResources).Delete(cacheKey(profileID))
	})
	if err != nil {
		c.log.LogCacheError(ctx, "invalidate", profileID, err)
		return apperrors.Wrap(err, apperrors.CodeCacheBackend, "delete cache entry")
	}
	return nil
}

// Close releases the underlying file.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) deleteEntry(ctx context.Context, profileID int64) {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResources).Delete(cacheKey(profileID))
	})
	if err != nil {
		c.log.LogCacheError(ctx, "expire", profileID, err)
	}
}
