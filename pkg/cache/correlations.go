// Package cache puts a Redis read-through cache in front of a correlation store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	DefaultTTL          = 10 * time.Minute
	DefaultTombstoneTTL = 30 * time.Second
	defaultKeyPrefix    = "clover:correlations:"

	// tombstone marks a record written since the last fill. It is not valid JSON.
	tombstone = "-"
)

// KeyStore is the subset of *redis.Client the cache uses.
type KeyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
	DelMatching(ctx context.Context, pattern string) error
}

// CorrelationStore caches Lookup results, one key per element and asset manager, each
// with its own expiration. Writes go to the wrapped store first and then replace the
// key with a short-lived tombstone. Fills only write absent keys, so a lookup that read
// the store before a concurrent write cannot put the old record back while the
// tombstone lives. Cache failures are logged and never fail the call.
type CorrelationStore struct {
	inner        correlation.CorrelationStore
	keys         KeyStore
	ttl          time.Duration
	tombstoneTTL time.Duration
	keyPrefix    string
	logger       ectologger.Logger
}

// NewCorrelationStore wraps inner. A zero ttl uses DefaultTTL.
func NewCorrelationStore(inner correlation.CorrelationStore, keys KeyStore, ttl time.Duration, logger ectologger.Logger) *CorrelationStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CorrelationStore{
		inner:        inner,
		keys:         keys,
		ttl:          ttl,
		tombstoneTTL: min(DefaultTombstoneTTL, ttl),
		keyPrefix:    defaultKeyPrefix,
		logger:       logger,
	}
}

func (c *CorrelationStore) Attach(ctx context.Context, record *models.CorrelationRecord) error {
	if err := c.inner.Attach(ctx, record); err != nil {
		return err
	}
	c.invalidate(ctx, record.AssetManagerGUID, record.ElementGUID)
	return nil
}

// Lookup serves the record from Redis, filling it from the wrapped store on a miss.
func (c *CorrelationStore) Lookup(ctx context.Context, elementGUID, assetManagerGUID string) (*models.CorrelationRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "cache.CorrelationStore.Lookup")
	defer span.End()

	key := c.key(assetManagerGUID, elementGUID)
	cached, err := c.keys.Get(ctx, key)
	switch {
	case err == nil && cached == tombstone:
	case err == nil:
		var record models.CorrelationRecord
		if jsonErr := json.Unmarshal([]byte(cached), &record); jsonErr == nil {
			return &record, nil
		}
		c.logger.WithContext(ctx).WithField("key", key).Warn("Discarding unreadable cached correlation")
	case !errors.Is(err, redis.ErrNil):
		c.logger.WithContext(ctx).WithError(err).WithField("key", key).Warn("Correlation cache read failed")
	}

	record, err := c.inner.Lookup(ctx, elementGUID, assetManagerGUID)
	if err != nil || record == nil {
		return record, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return record, nil
	}
	if _, err := c.keys.SetNX(ctx, key, string(data), c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("key", key).Warn("Correlation cache write failed")
	}
	return record, nil
}

// Update writes through and tombstones the cached record.
func (c *CorrelationStore) Update(ctx context.Context, record *models.CorrelationRecord) error {
	if err := c.inner.Update(ctx, record); err != nil {
		return err
	}
	c.invalidate(ctx, record.AssetManagerGUID, record.ElementGUID)
	return nil
}

func (c *CorrelationStore) Detach(ctx context.Context, elementGUID, assetManagerGUID string) error {
	if err := c.inner.Detach(ctx, elementGUID, assetManagerGUID); err != nil {
		return err
	}
	c.invalidate(ctx, assetManagerGUID, elementGUID)
	return nil
}

// DetachAll detaches every record of the element and tombstones each one.
func (c *CorrelationStore) DetachAll(ctx context.Context, elementGUID string) ([]models.CorrelationRecord, error) {
	records, err := c.inner.DetachAll(ctx, elementGUID)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		c.invalidate(ctx, r.AssetManagerGUID, r.ElementGUID)
	}
	return records, nil
}

func (c *CorrelationStore) ListForElement(ctx context.Context, elementGUID string) ([]models.CorrelationRecord, error) {
	return c.inner.ListForElement(ctx, elementGUID)
}

func (c *CorrelationStore) FindByIdentifier(ctx context.Context, assetManagerGUID, identifier string) ([]models.CorrelationRecord, error) {
	return c.inner.FindByIdentifier(ctx, assetManagerGUID, identifier)
}

// DetachAssetManager drops every cached record of the asset manager. Lookups for it
// fail once the registration is gone, so fills racing the delete are unreachable.
func (c *CorrelationStore) DetachAssetManager(ctx context.Context, assetManagerGUID string) (int, error) {
	n, err := c.inner.DetachAssetManager(ctx, assetManagerGUID)
	if err != nil {
		return n, err
	}
	if err := c.keys.DelMatching(ctx, c.keyPrefix+assetManagerGUID+":*"); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("asset_manager_guid", assetManagerGUID).Warn("Correlation cache invalidation failed")
	}
	return n, nil
}

func (c *CorrelationStore) invalidate(ctx context.Context, assetManagerGUID, elementGUID string) {
	if err := c.keys.Set(ctx, c.key(assetManagerGUID, elementGUID), tombstone, c.tombstoneTTL); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"asset_manager_guid": assetManagerGUID,
			"element_guid":       elementGUID,
		}).Warn("Correlation cache invalidation failed")
	}
}

func (c *CorrelationStore) key(assetManagerGUID, elementGUID string) string {
	return c.keyPrefix + assetManagerGUID + ":" + elementGUID
}
