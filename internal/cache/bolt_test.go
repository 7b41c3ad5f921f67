package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/cloudscope/cloudscope/telemetry"
	"github.com/cloudscope/cloudscope/types"
)

func newTestCache(t *testing.T, ttl time.Duration) *BoltCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := NewBoltCache(path, ttl, telemetry.NewLogger("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testCollection() types.ResourceCollection {
	return types.ResourceCollection{
		"EC2 Instances": {
			{"Name": "web", "Instance Id": "i-abc123"},
		},
		"S3 Buckets": {},
	}
}

func TestBoltCache_RoundTrip(t *testing.T) {
	c := newTestCache(t, 7*24*time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, testCollection()))

	got, ok := c.Get(ctx, 1)
	require.True(t, ok)
	require.Len(t, got, 2)
	require.Len(t, got["EC2 Instances"], 1)
	assert.Equal(t, "web", got["EC2 Instances"][0]["Name"])
	assert.Equal(t, "i-abc123", got["EC2 Instances"][0]["Instance Id"])

	// An empty label survives the round trip as an empty list.
	records, present := got["S3 Buckets"]
	require.True(t, present)
	assert.Empty(t, records)
}

func TestBoltCache_MissForUnknownProfile(t *testing.T) {
	c := newTestCache(t, 7*24*time.Hour)

	got, ok := c.Get(context.Background(), 99)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestBoltCache_KeysAreProfileScoped(t *testing.T) {
	c := newTestCache(t, 7*24*time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, testCollection()))
	require.NoError(t, c.Set(ctx, 2, types.ResourceCollection{"VPCs": {}}))

	require.NoError(t, c.Invalidate(ctx, 1))

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	_, ok = c.Get(ctx, 2)
	assert.True(t, ok)
}

func TestBoltCache_ExpiredEntryIsMissAndLazilyDeleted(t *testing.T) {
	c := newTestCache(t, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, testCollection()))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)

	// The expired entry is gone from the bucket, not just skipped.
	err := c.db.View(func(tx *bbolt.Tx) error {
		assert.Nil(t, tx.Bucket(bucketResources).Get(cacheKey(1)))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltCache_CorruptEntryIsMiss(t *testing.T) {
	c := newTestCache(t, 7*24*time.Hour)
	ctx := context.Background()

	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResources).Put(cacheKey(1), []byte("not json"))
	})
	require.NoError(t, err)

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
}

func TestBoltCache_InvalidateAbsentKey(t *testing.T) {
	c := newTestCache(t, 7*24*time.Hour)
	assert.NoError(t, c.Invalidate(context.Background(), 42))
}

func TestNewBoltCache_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")
	c, err := NewBoltCache(path, time.Hour, telemetry.NewLogger("test"))
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestDisabled(t *testing.T) {
	c := Disabled()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, testCollection()))

	got, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	assert.Nil(t, got)

	assert.NoError(t, c.Invalidate(ctx, 1))
	assert.NoError(t, c.Close())
}
