package cache_test

import (
	"context"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
)

type fakeKeys struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	gets    int
	failing bool
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKeys) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failing {
		return "", fmt.Errorf("connection refused")
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (f *fakeKeys) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return fmt.Errorf("connection refused")
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKeys) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, fmt.Errorf("connection refused")
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeKeys) DelMatching(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(f.data, key)
		}
	}
	return nil
}

func (f *fakeKeys) cached(am, element string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data["clover:correlations:"+am+":"+element]
	return v, ok && v != "-"
}

// slowStore runs beforeReturn between reading a record and handing it back, which is
// where a concurrent writer can slip in.
type slowStore struct {
	correlation.CorrelationStore
	beforeReturn func()
}

func (s *slowStore) Lookup(ctx context.Context, elementGUID, assetManagerGUID string) (*models.CorrelationRecord, error) {
	record, err := s.CorrelationStore.Lookup(ctx, elementGUID, assetManagerGUID)
	if hook := s.beforeReturn; hook != nil {
		s.beforeReturn = nil
		hook()
	}
	return record, err
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newElement(t *testing.T, store *memstore.Store) string {
	t.Helper()
	el, err := store.Elements().Create(context.Background(), &models.Element{TypeName: "Asset", Properties: models.ElementProperties{QualifiedName: "orders"}}, models.RequestOptions{})
	require.NoError(t, err)
	return el.GUID
}

func setup(t *testing.T) (*cache.CorrelationStore, *fakeKeys, string) {
	t.Helper()
	store := memstore.New()
	guid := newElement(t, store)
	keys := newFakeKeys()
	return cache.NewCorrelationStore(store.Correlations(), keys, time.Minute, noopLogger()), keys, guid
}

func record(elementGUID, identifier string) *models.CorrelationRecord {
	return &models.CorrelationRecord{
		ElementGUID:        elementGUID,
		ElementType:        "Asset",
		AssetManagerGUID:   "am-1",
		AssetManagerName:   "catalog",
		ExternalIdentifier: models.ExternalIdentifier{Identifier: identifier, KeyPattern: models.KeyPatternLocal},
	}
}

func TestLookupReadsThrough(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	guid := newElement(t, store)
	require.NoError(t, store.Correlations().Attach(ctx, record(guid, "tbl-42")))
	keys := newFakeKeys()
	c := cache.NewCorrelationStore(store.Correlations(), keys, time.Minute, noopLogger())

	first, err := c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	_, ok := keys.cached("am-1", guid)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, keys.ttls["clover:correlations:am-1:"+guid])

	second, err := c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)
	assert.Equal(t, "tbl-42", second.ExternalIdentifier.Identifier)
	assert.Equal(t, first.AssetManagerName, second.AssetManagerName)
}

func TestLookupMissIsNotCached(t *testing.T) {
	c, keys, guid := setup(t)

	got, err := c.Lookup(context.Background(), guid, "am-1")

	require.NoError(t, err)
	assert.Nil(t, got)
	_, ok := keys.cached("am-1", guid)
	assert.False(t, ok)
}

func TestWritesInvalidate(t *testing.T) {
	ctx := context.Background()
	c, keys, guid := setup(t)
	require.NoError(t, c.Attach(ctx, record(guid, "tbl-42")))
	_, err := c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)

	require.NoError(t, c.Update(ctx, record(guid, "tbl-43")))
	_, ok := keys.cached("am-1", guid)
	assert.False(t, ok)

	got, err := c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)
	assert.Equal(t, "tbl-43", got.ExternalIdentifier.Identifier)

	require.NoError(t, c.Detach(ctx, guid, "am-1"))
	_, ok = keys.cached("am-1", guid)
	assert.False(t, ok)
	got, err = c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookupDoesNotRestoreRecordReplacedMidRead(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	guid := newElement(t, store)
	require.NoError(t, store.Correlations().Attach(ctx, record(guid, "OLD")))

	inner := &slowStore{CorrelationStore: store.Correlations()}
	keys := newFakeKeys()
	c := cache.NewCorrelationStore(inner, keys, time.Minute, noopLogger())
	inner.beforeReturn = func() {
		require.NoError(t, c.Update(ctx, record(guid, "NEW")))
	}

	stale, err := c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)
	assert.Equal(t, "OLD", stale.ExternalIdentifier.Identifier)

	got, err := c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)
	assert.Equal(t, "NEW", got.ExternalIdentifier.Identifier)
	_, ok := keys.cached("am-1", guid)
	assert.False(t, ok, "the old record must not be cached over the tombstone")
}

func TestEntriesExpireIndividually(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	first := newElement(t, store)
	second := newElement(t, store)
	require.NoError(t, store.Correlations().Attach(ctx, record(first, "tbl-1")))
	require.NoError(t, store.Correlations().Attach(ctx, record(second, "tbl-2")))
	keys := newFakeKeys()
	c := cache.NewCorrelationStore(store.Correlations(), keys, time.Minute, noopLogger())

	_, err := c.Lookup(ctx, first, "am-1")
	require.NoError(t, err)
	_, err = c.Lookup(ctx, second, "am-1")
	require.NoError(t, err)

	assert.Len(t, keys.data, 2)
	for key, ttl := range keys.ttls {
		assert.Equal(t, time.Minute, ttl, key)
	}
}

func TestDetachAssetManagerDropsEntries(t *testing.T) {
	ctx := context.Background()
	c, keys, guid := setup(t)
	require.NoError(t, c.Attach(ctx, record(guid, "tbl-42")))
	_, err := c.Lookup(ctx, guid, "am-1")
	require.NoError(t, err)

	n, err := c.DetachAssetManager(ctx, "am-1")

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, keys.data)
}

func TestCacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	c, keys, guid := setup(t)
	require.NoError(t, c.Attach(ctx, record(guid, "tbl-42")))
	keys.failing = true

	got, err := c.Lookup(ctx, guid, "am-1")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tbl-42", got.ExternalIdentifier.Identifier)
}
