package memstore

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/clover/pkg/models"
)

type ElementStore struct {
	s *Store
}

func (e *ElementStore) Create(_ context.Context, element *models.Element, _ models.RequestOptions) (*models.Element, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	created := cloneElement(element)
	if created.GUID == "" {
		created.GUID = e.s.newGUID()
	}
	if _, exists := e.s.elements[created.GUID]; exists {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "element %s already exists", created.GUID)
	}
	if created.Status == "" {
		created.Status = models.ElementStatusActive
	}
	now := e.s.now()
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now

	e.s.elements[created.GUID] = created
	e.s.elementOrder = append(e.s.elementOrder, created.GUID)
	return cloneElement(created), nil
}

func (e *ElementStore) Get(_ context.Context, guid string, opts models.RequestOptions) (*models.Element, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	element, ok := e.s.elements[guid]
	if !ok || !visible(element, opts) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}
	return cloneElement(element), nil
}

func (e *ElementStore) Update(_ context.Context, guid string, replaceAll bool, props models.ElementProperties, _ models.RequestOptions) (*models.Element, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	element, ok := e.s.elements[guid]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}
	if replaceAll {
		element.Properties = props.Clone()
	} else {
		element.Properties = element.Properties.Merge(props)
	}
	element.Version++
	element.UpdatedAt = e.s.now()
	return cloneElement(element), nil
}

// Delete removes the element, the elements anchored below it and their records.
func (e *ElementStore) Delete(_ context.Context, guid string, _ models.RequestOptions) ([]string, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if _, ok := e.s.elements[guid]; !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}

	removed := []string{guid}
	for i := 0; i < len(removed); i++ {
		for _, candidate := range e.s.elementOrder {
			el := e.s.elements[candidate]
			if el.AnchorGUID != nil && *el.AnchorGUID == removed[i] && !ectolinq.Contains(removed, candidate) {
				removed = append(removed, candidate)
			}
		}
	}
	for _, g := range removed {
		e.s.removeElementLocked(g)
	}
	return removed, nil
}

func (e *ElementStore) Find(_ context.Context, criteria models.SearchCriteria, paging models.Paging, opts models.RequestOptions) ([]models.Element, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	matches := []models.Element{}
	for _, guid := range e.s.elementOrder {
		element := e.s.elements[guid]
		if !visible(element, opts) || !element.IsEffectiveAt(opts.EffectiveTime) || !matchesCriteria(element, criteria) {
			continue
		}
		matches = append(matches, *cloneElement(element))
	}
	return page(matches, paging), nil
}

func (e *ElementStore) SetAnchor(_ context.Context, guid string, anchorGUID *string) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	element, ok := e.s.elements[guid]
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "element %s not found", guid)
	}
	if anchorGUID == nil {
		element.AnchorGUID = nil
		return nil
	}
	anchor := *anchorGUID
	element.AnchorGUID = &anchor
	return nil
}

// visible hides archived elements unless lineage is requested.
func visible(element *models.Element, opts models.RequestOptions) bool {
	return opts.ForLineage || element.Status != models.ElementStatusArchived
}

func matchesCriteria(element *models.Element, c models.SearchCriteria) bool {
	p := element.Properties
	if c.TypeName != "" && element.TypeName != c.TypeName {
		return false
	}
	if c.Name != "" && p.QualifiedName != c.Name && p.DisplayName != c.Name {
		return false
	}
	if c.QualifiedName != "" && p.QualifiedName != c.QualifiedName {
		return false
	}
	if c.DisplayName != "" && p.DisplayName != c.DisplayName {
		return false
	}
	if c.SearchString != "" {
		needle := strings.ToLower(c.SearchString)
		if !strings.Contains(strings.ToLower(p.QualifiedName), needle) &&
			!strings.Contains(strings.ToLower(p.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}
