package memstore

import (
	"context"
	"maps"

	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/clover/pkg/models"
)

type RelationshipStore struct {
	s *Store
}

func (r *RelationshipStore) Relate(_ context.Context, rel *models.Relationship, _ models.RequestOptions) (*models.Relationship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := cloneRelationship(rel)
	if created.GUID == "" {
		created.GUID = r.s.newGUID()
	}
	created.CreatedAt = r.s.now()
	r.s.relationships[created.GUID] = created
	r.s.relOrder = append(r.s.relOrder, created.GUID)
	return cloneRelationship(created), nil
}

func (r *RelationshipStore) Find(_ context.Context, relType, endOneGUID, endTwoGUID string, opts models.RequestOptions) ([]models.Relationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.collect(func(rel *models.Relationship) bool {
		return rel.TypeName == relType && rel.EndOneGUID == endOneGUID && rel.EndTwoGUID == endTwoGUID
	}, opts), nil
}

func (r *RelationshipStore) Unrelate(_ context.Context, relType, endOneGUID, endTwoGUID string, _ models.RequestOptions) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.removeLocked(func(rel *models.Relationship) bool {
		return rel.TypeName == relType && rel.EndOneGUID == endOneGUID && rel.EndTwoGUID == endTwoGUID
	})
	return nil
}

func (r *RelationshipStore) List(_ context.Context, guid string, paging models.Paging, opts models.RequestOptions) ([]models.Relationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return page(r.collect(func(rel *models.Relationship) bool { return rel.Involves(guid) }, opts), paging), nil
}

func (r *RelationshipStore) RemoveForElement(_ context.Context, guid string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.removeLocked(func(rel *models.Relationship) bool { return rel.Involves(guid) })
	return nil
}

func (r *RelationshipStore) collect(match func(*models.Relationship) bool, opts models.RequestOptions) []models.Relationship {
	out := []models.Relationship{}
	for _, guid := range r.s.relOrder {
		rel := r.s.relationships[guid]
		if match(rel) && rel.IsEffectiveAt(opts.EffectiveTime) {
			out = append(out, *cloneRelationship(rel))
		}
	}
	return out
}

func (r *RelationshipStore) removeLocked(match func(*models.Relationship) bool) {
	for guid, rel := range r.s.relationships {
		if match(rel) {
			delete(r.s.relationships, guid)
		}
	}
	r.s.relOrder = ectolinq.Filter(r.s.relOrder, func(guid string) bool {
		_, ok := r.s.relationships[guid]
		return ok
	})
}

func cloneRelationship(rel *models.Relationship) *models.Relationship {
	c := *rel
	if rel.Properties != nil {
		c.Properties = maps.Clone(rel.Properties)
	}
	if rel.HomeAssetManagerGUID != nil {
		home := *rel.HomeAssetManagerGUID
		c.HomeAssetManagerGUID = &home
	}
	return &c
}
