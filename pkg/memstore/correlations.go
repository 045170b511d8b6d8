package memstore

import (
	"context"
	"net/http"
	"sort"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/clover/pkg/models"
)

type CorrelationStore struct {
	s *Store
}

// Attach stores a new record. The element must exist.
func (c *CorrelationStore) Attach(_ context.Context, record *models.CorrelationRecord) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.elements[record.ElementGUID]; !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", record.ElementGUID)
	}
	key := correlationKey{elementGUID: record.ElementGUID, assetManagerGUID: record.AssetManagerGUID}
	if _, exists := c.s.correlations[key]; exists {
		return httperror.NewHTTPErrorf(http.StatusConflict, "element %s is already correlated with asset manager %s", record.ElementGUID, record.AssetManagerGUID)
	}
	c.s.correlations[key] = cloneRecord(record)
	return nil
}

// Lookup returns a copy of the record, or nil.
func (c *CorrelationStore) Lookup(_ context.Context, elementGUID, assetManagerGUID string) (*models.CorrelationRecord, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	record, ok := c.s.correlations[correlationKey{elementGUID: elementGUID, assetManagerGUID: assetManagerGUID}]
	if !ok {
		return nil, nil
	}
	return cloneRecord(record), nil
}

func (c *CorrelationStore) Update(_ context.Context, record *models.CorrelationRecord) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	key := correlationKey{elementGUID: record.ElementGUID, assetManagerGUID: record.AssetManagerGUID}
	if _, ok := c.s.correlations[key]; !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "no correlation between element %s and asset manager %s", record.ElementGUID, record.AssetManagerGUID)
	}
	c.s.correlations[key] = cloneRecord(record)
	return nil
}

func (c *CorrelationStore) Detach(_ context.Context, elementGUID, assetManagerGUID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	delete(c.s.correlations, correlationKey{elementGUID: elementGUID, assetManagerGUID: assetManagerGUID})
	return nil
}

func (c *CorrelationStore) DetachAll(_ context.Context, elementGUID string) ([]models.CorrelationRecord, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	removed := c.matchLocked(func(r *models.CorrelationRecord) bool { return r.ElementGUID == elementGUID })
	for _, r := range removed {
		delete(c.s.correlations, correlationKey{elementGUID: r.ElementGUID, assetManagerGUID: r.AssetManagerGUID})
	}
	return removed, nil
}

func (c *CorrelationStore) ListForElement(_ context.Context, elementGUID string) ([]models.CorrelationRecord, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	return c.matchLocked(func(r *models.CorrelationRecord) bool { return r.ElementGUID == elementGUID }), nil
}

func (c *CorrelationStore) FindByIdentifier(_ context.Context, assetManagerGUID, identifier string) ([]models.CorrelationRecord, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	return c.matchLocked(func(r *models.CorrelationRecord) bool {
		return r.AssetManagerGUID == assetManagerGUID && r.ExternalIdentifier.Identifier == identifier
	}), nil
}

func (c *CorrelationStore) DetachAssetManager(_ context.Context, assetManagerGUID string) (int, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	removed := 0
	for key := range c.s.correlations {
		if key.assetManagerGUID == assetManagerGUID {
			delete(c.s.correlations, key)
			removed++
		}
	}
	return removed, nil
}

// matchLocked returns copies of the matching records, oldest first.
func (c *CorrelationStore) matchLocked(match func(*models.CorrelationRecord) bool) []models.CorrelationRecord {
	out := []models.CorrelationRecord{}
	for _, r := range c.s.correlations {
		if match(r) {
			out = append(out, *cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].ElementGUID != out[j].ElementGUID {
			return out[i].ElementGUID < out[j].ElementGUID
		}
		return out[i].AssetManagerGUID < out[j].AssetManagerGUID
	})
	return out
}
