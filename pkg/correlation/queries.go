package correlation

import (
	"context"
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/search"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// GetByGUID returns the element, or NotFound when it does not exist or is not effective
// at the requested time.
func (m *Manager) GetByGUID(ctx context.Context, guid string, opts models.RequestOptions) (element *models.Element, err error) {
	const method = "GetByGUID"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.GetByGUID")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "elementGUID", guid); err != nil {
		return nil, err
	}
	return m.getElement(ctx, method, guid, opts)
}

// GetByName returns the elements whose qualified name or display name is name.
func (m *Manager) GetByName(ctx context.Context, typeName, name string, paging models.Paging, opts models.RequestOptions) (elements []models.Element, err error) {
	const method = "GetByName"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.GetByName")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if strings.TrimSpace(name) == "" {
		return nil, errors.InvalidParameter(method, "name is required").AddMetaValue("parameter", "name")
	}
	return m.find(ctx, method, models.SearchCriteria{TypeName: typeName, Name: name}, paging, opts)
}

// Find pages through the elements that match criteria. A filter expression is applied
// before paging.
func (m *Manager) Find(ctx context.Context, criteria models.SearchCriteria, paging models.Paging, opts models.RequestOptions) (elements []models.Element, err error) {
	const method = "Find"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.Find")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	return m.find(ctx, method, criteria, paging, opts)
}

func (m *Manager) find(ctx context.Context, method string, criteria models.SearchCriteria, paging models.Paging, opts models.RequestOptions) ([]models.Element, error) {
	paging, err := paging.Validate(method, m.maxPageSize)
	if err != nil {
		return nil, err
	}
	if criteria.TypeName != "" {
		if _, ok := m.registry.Type(criteria.TypeName); !ok {
			return nil, errors.InvalidParameter(method, "unknown element type %s", criteria.TypeName).AddMetaValue("element_type", criteria.TypeName)
		}
	}

	if criteria.Filter == "" {
		elements, err := m.elements.Find(ctx, criteria, paging, opts)
		if err != nil {
			return nil, errors.Classify(method, err)
		}
		return elements, nil
	}

	filter, err := search.Compile(criteria.Filter)
	if err != nil {
		return nil, errors.InvalidParameter(method, "invalid filter: %v", err).AddMetaValue("filter", criteria.Filter)
	}
	criteria.Filter = ""

	out := make([]models.Element, 0, paging.PageSize)
	skipped := 0
	for start := 0; ; start += m.maxPageSize {
		page, err := m.elements.Find(ctx, criteria, models.Paging{StartFrom: start, PageSize: m.maxPageSize}, opts)
		if err != nil {
			return nil, errors.Classify(method, err)
		}
		for _, element := range page {
			ok, err := filter.Match(element)
			if err != nil {
				return nil, errors.InvalidParameter(method, "filter could not be evaluated: %v", err).AddMetaValue("filter", filter.String())
			}
			if !ok {
				continue
			}
			if skipped < paging.StartFrom {
				skipped++
				continue
			}
			out = append(out, element)
			if len(out) == paging.PageSize {
				return out, nil
			}
		}
		if len(page) < m.maxPageSize {
			return out, nil
		}
	}
}

// Lookup returns the correlation record of the element for the asset manager. It
// returns nil without error when no asset manager is named or no record exists.
func (m *Manager) Lookup(ctx context.Context, guid string, ref models.AssetManagerRef, opts models.RequestOptions) (record *models.CorrelationRecord, err error) {
	const method = "Lookup"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.Lookup")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "elementGUID", guid); err != nil {
		return nil, err
	}
	if _, err := m.getElement(ctx, method, guid, opts); err != nil {
		return nil, err
	}
	if ref.IsEmpty() {
		return nil, nil
	}
	am, err := m.resolver.resolve(ctx, method, ref)
	if err != nil {
		return nil, err
	}
	record, err = m.correlations.Lookup(ctx, guid, am.GUID)
	if err != nil {
		return nil, errors.Classify(method, err)
	}
	return record, nil
}

// ListCorrelations returns every correlation record of the element.
func (m *Manager) ListCorrelations(ctx context.Context, guid string, opts models.RequestOptions) (records []models.CorrelationRecord, err error) {
	const method = "ListCorrelations"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.ListCorrelations")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "elementGUID", guid); err != nil {
		return nil, err
	}
	if _, err := m.getElement(ctx, method, guid, opts); err != nil {
		return nil, err
	}
	records, err = m.correlations.ListForElement(ctx, guid)
	if err != nil {
		return nil, errors.Classify(method, err)
	}
	return records, nil
}

// FindByExternalIdentifier returns the elements the asset manager knows by identifier.
// Identifiers are not unique, so more than one element may come back.
func (m *Manager) FindByExternalIdentifier(ctx context.Context, ref models.AssetManagerRef, identifier string, paging models.Paging, opts models.RequestOptions) (elements []models.Element, err error) {
	const method = "FindByExternalIdentifier"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.FindByExternalIdentifier")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.InvalidParameter(method, "identifier is required").AddMetaValue("parameter", "identifier")
	}
	paging, err = paging.Validate(method, m.maxPageSize)
	if err != nil {
		return nil, err
	}
	am, err := m.resolver.resolve(ctx, method, ref)
	if err != nil {
		return nil, err
	}

	records, err := m.correlations.FindByIdentifier(ctx, am.GUID, identifier)
	if err != nil {
		return nil, errors.Classify(method, err)
	}

	elements = []models.Element{}
	skipped := 0
	for _, r := range records {
		element, err := m.getElement(ctx, method, r.ElementGUID, opts)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if skipped < paging.StartFrom {
			skipped++
			continue
		}
		elements = append(elements, *element)
		if len(elements) == paging.PageSize {
			break
		}
	}
	return elements, nil
}
