// Package correlation keeps local metadata elements and the identifiers external asset
// managers use for them consistent across create, update and remove.
package correlation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/elementtypes"
	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"go.opentelemetry.io/otel/trace"
)

// Stores are the persistence collaborators of a Manager. All four are required.
type Stores struct {
	Elements      ElementStore
	Relationships RelationshipStore
	Correlations  CorrelationStore
	AssetManagers AssetManagerStore
}

// Config tunes a Manager. The zero value is usable.
type Config struct {
	// MaxPageSize bounds every paged query. Zero uses models.DefaultMaxPageSize.
	MaxPageSize int
	// SkipHomeCheck lets any caller mutate elements and relationships homed in an asset manager.
	SkipHomeCheck bool
	// ResolverCacheSize is the number of asset managers cached per lookup key.
	ResolverCacheSize int
	// ResolverCacheTTL is how long a resolved asset manager is trusted. Defaults to a minute.
	ResolverCacheTTL time.Duration
	Notifier         Notifier
	Observer         Observer
	// Now is the clock used for synchronization times. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Manager mediates element lifecycle so correlation records stay consistent with it.
// It holds no per-call state and is safe for concurrent use.
type Manager struct {
	logger        ectologger.Logger
	registry      *elementtypes.Registry
	elements      ElementStore
	relationships RelationshipStore
	correlations  CorrelationStore
	assetManagers AssetManagerStore
	resolver      *resolver
	notifier      Notifier
	observer      Observer
	now           func() time.Time
	maxPageSize   int
	skipHomeCheck bool
}

// NewManager builds a manager over stores. A nil registry uses elementtypes.Default.
func NewManager(logger ectologger.Logger, registry *elementtypes.Registry, stores Stores, cfg Config) (*Manager, error) {
	if stores.Elements == nil || stores.Relationships == nil || stores.Correlations == nil || stores.AssetManagers == nil {
		return nil, fmt.Errorf("correlation manager requires element, relationship, correlation and asset manager stores")
	}
	if registry == nil {
		registry = elementtypes.Default()
	}
	res := newResolver(stores.AssetManagers, cfg.ResolverCacheSize, cfg.ResolverCacheTTL)
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = models.DefaultMaxPageSize
	}

	return &Manager{
		logger:        logger,
		registry:      registry,
		elements:      stores.Elements,
		relationships: stores.Relationships,
		correlations:  stores.Correlations,
		assetManagers: stores.AssetManagers,
		resolver:      res,
		notifier:      cfg.Notifier,
		observer:      cfg.Observer,
		now:           now,
		maxPageSize:   maxPageSize,
		skipHomeCheck: cfg.SkipHomeCheck,
	}, nil
}

// Registry returns the element type registry the manager validates against.
func (m *Manager) Registry() *elementtypes.Registry {
	return m.registry
}

// MaxPageSize returns the page size used when a request asks for zero.
func (m *Manager) MaxPageSize() int {
	return m.maxPageSize
}

// observe is deferred by every public operation.
func (m *Manager) observe(method string, start time.Time, span trace.Span, errp *error) {
	tracing.RecordError(span, *errp)
	if m.observer != nil {
		m.observer.ObserveOperation(method, *errp, time.Since(start))
	}
}

func (m *Manager) publish(ctx context.Context, event models.Event) {
	if m.notifier == nil {
		return
	}
	event.Timestamp = m.now()
	if err := m.notifier.Publish(ctx, event); err != nil {
		m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": string(event.Type),
			"key":        event.Key(),
		}).Warn("Failed to publish lifecycle event")
	}
}

func requireGUID(method, name, guid string) error {
	if strings.TrimSpace(guid) == "" {
		return errors.InvalidParameter(method, "%s is required", name).AddMetaValue("parameter", name)
	}
	return nil
}

// checkType verifies the type is registered and the required property is set.
func (m *Manager) checkType(method, elementType string, props models.ElementProperties) error {
	if strings.TrimSpace(elementType) == "" {
		return errors.InvalidParameter(method, "element type name is required").AddMetaValue("parameter", "elementType")
	}
	if _, ok := m.registry.Type(elementType); !ok {
		return errors.InvalidParameter(method, "unknown element type %s", elementType).AddMetaValue("element_type", elementType)
	}
	return m.checkRequiredProperty(method, elementType, props)
}

func (m *Manager) checkRequiredProperty(method, elementType string, props models.ElementProperties) error {
	required := m.registry.RequiredProperty(elementType)
	if !props.HasValue(required) {
		return errors.InvalidParameter(method, "%s is required for %s", required, elementType).
			AddMetaValue("parameter", required).
			AddMetaValue("element_type", elementType)
	}
	return nil
}

func validateIdentifier(method string, id *models.ExternalIdentifier) error {
	if id == nil {
		return nil
	}
	if strings.TrimSpace(id.Identifier) == "" {
		return errors.InvalidParameter(method, "external identifier must not be empty").AddMetaValue("parameter", "identifier")
	}
	if id.KeyPattern != "" && !id.KeyPattern.Valid() {
		return errors.InvalidParameter(method, "unknown key pattern %s", id.KeyPattern).AddMetaValue("key_pattern", string(id.KeyPattern))
	}
	return nil
}

// getElement loads an element, hiding it when its effectivity window excludes the
// requested time.
func (m *Manager) getElement(ctx context.Context, method, guid string, opts models.RequestOptions) (*models.Element, error) {
	element, err := m.elements.Get(ctx, guid, opts)
	if err != nil {
		return nil, errors.Classify(method, err)
	}
	if element == nil || !element.IsEffectiveAt(opts.EffectiveTime) {
		return nil, errors.NotFound(method, "element %s not found", guid).AddMetaValue("element_guid", guid)
	}
	return element, nil
}

// correlationCheck is the outcome of validating a correlation against an element.
type correlationCheck struct {
	assetManager *models.AssetManager
	record       *models.CorrelationRecord
	// adopt is set when the stored identifier is empty and the caller supplied one.
	adopt bool
}

// checkCorrelation compares the supplied identifier with the stored one and enforces
// the home asset manager.
func (m *Manager) checkCorrelation(ctx context.Context, method string, element *models.Element, corr models.Correlation) (*correlationCheck, error) {
	check := &correlationCheck{}

	if ref, ok := corr.AssetManager(); ok {
		if err := validateIdentifier(method, corr.ExternalIdentifier()); err != nil {
			return nil, err
		}
		am, err := m.resolver.resolve(ctx, method, ref)
		if err != nil {
			return nil, err
		}
		check.assetManager = am

		record, err := m.correlations.Lookup(ctx, element.GUID, am.GUID)
		if err != nil {
			return nil, errors.Classify(method, err)
		}
		check.record = record

		if record != nil {
			adopt, err := m.compareIdentifier(ctx, method, element.GUID, am, record, corr)
			if err != nil {
				return nil, err
			}
			check.adopt = adopt
		}
	}

	if err := m.checkHome(ctx, method, element.GUID, check.assetManager); err != nil {
		return nil, err
	}
	return check, nil
}

// compareIdentifier reports a CorrelationMismatch when the record holds a different
// identifier than the one supplied. adopt is true when the record holds none yet.
func (m *Manager) compareIdentifier(ctx context.Context, method, elementGUID string, am *models.AssetManager, record *models.CorrelationRecord, corr models.Correlation) (adopt bool, err error) {
	stored := strings.TrimSpace(record.ExternalIdentifier.Identifier)
	supplied := corr.Identifier()
	switch {
	case stored != "" && supplied != stored:
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"element_guid":       elementGUID,
			"asset_manager_guid": am.GUID,
			"stored":             stored,
			"supplied":           supplied,
		}).Warn("External identifier does not match the correlation record")
		return false, errors.CorrelationMismatch(method, "asset manager %s knows element %s as %q, not %q", am.QualifiedName, elementGUID, stored, supplied).
			AddMetaValue("element_guid", elementGUID).
			AddMetaValue("asset_manager_guid", am.GUID).
			AddMetaValue("stored_identifier", stored).
			AddMetaValue("supplied_identifier", supplied)
	case stored == "" && supplied != "":
		return true, nil
	}
	return false, nil
}

// checkHome fails when another asset manager is home for the element.
func (m *Manager) checkHome(ctx context.Context, method, elementGUID string, caller *models.AssetManager) error {
	if m.skipHomeCheck {
		return nil
	}
	records, err := m.correlations.ListForElement(ctx, elementGUID)
	if err != nil {
		return errors.Classify(method, err)
	}
	for _, r := range records {
		if !r.AssetManagerIsHome {
			continue
		}
		if caller == nil || caller.GUID != r.AssetManagerGUID {
			return errors.UserNotAuthorized(method, "element %s is homed in asset manager %s", elementGUID, r.AssetManagerName).
				AddMetaValue("element_guid", elementGUID).
				AddMetaValue("home_asset_manager_guid", r.AssetManagerGUID)
		}
	}
	return nil
}

func (m *Manager) newRecord(element *models.Element, am *models.AssetManager, corr models.Correlation) *models.CorrelationRecord {
	id := models.ExternalIdentifier{}
	if supplied := corr.ExternalIdentifier(); supplied != nil {
		id = *supplied
		id.Identifier = strings.TrimSpace(id.Identifier)
	}
	id = id.WithDefaults()
	now := m.now()
	id.LastSynchronized = &now

	return &models.CorrelationRecord{
		ElementGUID:              element.GUID,
		ElementType:              element.TypeName,
		AssetManagerGUID:         am.GUID,
		AssetManagerName:         am.QualifiedName,
		ExternalIdentifier:       id,
		SynchronizationDirection: corr.Direction(),
		AssetManagerIsHome:       corr.IsHome(),
		LastKnownVersion:         element.Version,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

// touch records a successful synchronization on an existing record.
func (m *Manager) touch(record models.CorrelationRecord, element *models.Element, corr models.Correlation, adopt bool) *models.CorrelationRecord {
	if supplied := corr.ExternalIdentifier(); supplied != nil {
		if adopt {
			record.ExternalIdentifier.Identifier = strings.TrimSpace(supplied.Identifier)
		}
		if supplied.Description != "" {
			record.ExternalIdentifier.Description = supplied.Description
		}
		if supplied.Usage != "" {
			record.ExternalIdentifier.Usage = supplied.Usage
		}
		if supplied.Source != "" {
			record.ExternalIdentifier.Source = supplied.Source
		}
		if supplied.KeyPattern != "" {
			record.ExternalIdentifier.KeyPattern = supplied.KeyPattern
		}
		if len(supplied.MappingProperties) > 0 {
			record.ExternalIdentifier.MappingProperties = supplied.MappingProperties
		}
	}
	now := m.now()
	record.ExternalIdentifier.LastSynchronized = &now
	record.LastKnownVersion = element.Version
	record.ElementType = element.TypeName
	record.UpdatedAt = now
	return &record
}
