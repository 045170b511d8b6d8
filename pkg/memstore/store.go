// Package memstore keeps elements, relationships, correlation records and asset
// managers in memory. It backs tests and the single-process "memory" deployment.
package memstore

import (
	"slices"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/google/uuid"
)

type correlationKey struct {
	elementGUID      string
	assetManagerGUID string
}

// Store is the shared state behind the four store facets. Deleting an element removes
// its correlation records and relationships, as the database foreign keys do.
type Store struct {
	mu sync.RWMutex

	elements      map[string]*models.Element
	elementOrder  []string
	relationships map[string]*models.Relationship
	relOrder      []string
	correlations  map[correlationKey]*models.CorrelationRecord
	assetManagers map[string]*models.AssetManager

	now     func() time.Time
	newGUID func() string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		elements:      map[string]*models.Element{},
		relationships: map[string]*models.Relationship{},
		correlations:  map[correlationKey]*models.CorrelationRecord{},
		assetManagers: map[string]*models.AssetManager{},
		now:           func() time.Time { return time.Now().UTC() },
		newGUID:       uuid.NewString,
	}
}

// SetClock replaces the clock used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetGUIDGenerator replaces the GUID generator. Tests use it for stable GUIDs.
func (s *Store) SetGUIDGenerator(newGUID func() string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newGUID = newGUID
}

// Elements returns the element store facet.
func (s *Store) Elements() *ElementStore {
	return &ElementStore{s: s}
}

func (s *Store) Relationships() *RelationshipStore {
	return &RelationshipStore{s: s}
}

// Correlations returns the correlation store facet.
func (s *Store) Correlations() *CorrelationStore {
	return &CorrelationStore{s: s}
}

func (s *Store) AssetManagers() *AssetManagerStore {
	return &AssetManagerStore{s: s}
}

// removeElementLocked drops the element and everything that references it.
func (s *Store) removeElementLocked(guid string) {
	delete(s.elements, guid)
	s.elementOrder = slices.DeleteFunc(s.elementOrder, func(g string) bool { return g == guid })

	for key := range s.correlations {
		if key.elementGUID == guid {
			delete(s.correlations, key)
		}
	}
	for relGUID, rel := range s.relationships {
		if rel.Involves(guid) {
			delete(s.relationships, relGUID)
		}
	}
	s.relOrder = slices.DeleteFunc(s.relOrder, func(g string) bool {
		_, ok := s.relationships[g]
		return !ok
	})
}

func cloneElement(e *models.Element) *models.Element {
	c := *e
	c.Properties = e.Properties.Clone()
	c.Classifications = slices.Clone(e.Classifications)
	if e.AnchorGUID != nil {
		anchor := *e.AnchorGUID
		c.AnchorGUID = &anchor
	}
	return &c
}

func cloneRecord(r *models.CorrelationRecord) *models.CorrelationRecord {
	c := *r
	if r.ExternalIdentifier.LastSynchronized != nil {
		t := *r.ExternalIdentifier.LastSynchronized
		c.ExternalIdentifier.LastSynchronized = &t
	}
	if r.ExternalIdentifier.MappingProperties != nil {
		c.ExternalIdentifier.MappingProperties = make(map[string]string, len(r.ExternalIdentifier.MappingProperties))
		for k, v := range r.ExternalIdentifier.MappingProperties {
			c.ExternalIdentifier.MappingProperties[k] = v
		}
	}
	return &c
}

func page[T any](items []T, paging models.Paging) []T {
	if paging.StartFrom >= len(items) {
		return []T{}
	}
	end := len(items)
	if paging.PageSize > 0 && paging.StartFrom+paging.PageSize < end {
		end = paging.StartFrom + paging.PageSize
	}
	return items[paging.StartFrom:end]
}
