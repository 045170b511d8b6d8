package correlation

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// CreateWithCorrelation creates an element and, when correlated, attaches the asset
// manager's identifier to it. If the element was created but the correlation step
// failed, the new GUID is returned together with the error.
func (m *Manager) CreateWithCorrelation(ctx context.Context, elementType string, props models.ElementProperties, corr models.Correlation, opts models.RequestOptions, classifications ...models.Classification) (guid string, err error) {
	const method = "CreateWithCorrelation"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.CreateWithCorrelation")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := m.checkType(method, elementType, props); err != nil {
		return "", err
	}
	return m.create(ctx, method, elementType, props, classifications, corr, opts)
}

// CreateFromTemplate creates an element seeded from an existing element of a compatible
// type. The template's properties and classifications are copied and props override
// them; relationships that do not anchor are copied to the new element.
func (m *Manager) CreateFromTemplate(ctx context.Context, elementType, templateGUID string, props models.ElementProperties, corr models.Correlation, opts models.RequestOptions) (guid string, err error) {
	const method = "CreateFromTemplate"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.CreateFromTemplate")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := m.checkType(method, elementType, props); err != nil {
		return "", err
	}
	if err := requireGUID(method, "templateGUID", templateGUID); err != nil {
		return "", err
	}

	template, err := m.getElement(ctx, method, templateGUID, opts)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", errors.InvalidParameter(method, "template %s does not exist", templateGUID).AddMetaValue("template_guid", templateGUID)
		}
		return "", err
	}
	if !m.registry.TemplateCompatible(template.TypeName, elementType) {
		return "", errors.InvalidParameter(method, "template %s is a %s and cannot seed a %s", templateGUID, template.TypeName, elementType).
			AddMetaValue("template_guid", templateGUID).
			AddMetaValue("template_type", template.TypeName)
	}

	guid, err = m.create(ctx, method, elementType, template.Properties.Merge(props), slices.Clone(template.Classifications), corr, opts)
	if err != nil {
		return guid, err
	}

	if err := m.copyRelationships(ctx, method, templateGUID, guid, opts); err != nil {
		return guid, errors.WithMeta(err, "element_guid", guid)
	}
	return guid, nil
}

func (m *Manager) copyRelationships(ctx context.Context, method, templateGUID, guid string, opts models.RequestOptions) error {
	rels, err := m.relationships.List(ctx, templateGUID, models.Paging{PageSize: m.maxPageSize}, opts)
	if err != nil {
		return errors.Classify(method, err)
	}
	for _, rel := range rels {
		if def, ok := m.registry.Relationship(rel.TypeName); ok && def.Anchors {
			continue
		}
		copied := models.Relationship{
			TypeName:      rel.TypeName,
			EndOneGUID:    rel.EndOneGUID,
			EndTwoGUID:    rel.EndTwoGUID,
			Properties:    rel.Properties,
			EffectiveFrom: rel.EffectiveFrom,
			EffectiveTo:   rel.EffectiveTo,
		}
		if copied.EndOneGUID == templateGUID {
			copied.EndOneGUID = guid
		}
		if copied.EndTwoGUID == templateGUID {
			copied.EndTwoGUID = guid
		}
		if _, err := m.relationships.Relate(ctx, &copied, opts); err != nil {
			return errors.Classify(method, err)
		}
	}
	return nil
}

func (m *Manager) create(ctx context.Context, method, elementType string, props models.ElementProperties, classifications []models.Classification, corr models.Correlation, opts models.RequestOptions) (string, error) {
	var am *models.AssetManager
	if ref, ok := corr.AssetManager(); ok {
		if err := validateIdentifier(method, corr.ExternalIdentifier()); err != nil {
			return "", err
		}
		resolved, err := m.resolver.resolve(ctx, method, ref)
		if err != nil {
			return "", err
		}
		if err := m.resolver.confirm(ctx, method, resolved); err != nil {
			return "", err
		}
		am = resolved
	}

	element, err := m.elements.Create(ctx, &models.Element{
		TypeName:        elementType,
		Properties:      props,
		Classifications: classifications,
		Status:          models.ElementStatusActive,
	}, opts)
	if err != nil {
		return "", errors.Classify(method, err)
	}

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"element_guid": element.GUID,
		"element_type": elementType,
	})
	log.Info("Created element")
	m.publish(ctx, models.Event{
		Type:        models.EventElementCreated,
		ElementGUID: element.GUID,
		ElementType: element.TypeName,
		Version:     element.Version,
	})

	if am == nil {
		return element.GUID, nil
	}

	record := m.newRecord(element, am, corr)
	if err := m.correlations.Attach(ctx, record); err != nil {
		log.WithError(err).WithField("asset_manager_guid", am.GUID).Error("Element created but the correlation record could not be attached")
		return element.GUID, errors.WithMeta(errors.Classify(method, err), "element_guid", element.GUID)
	}
	m.publish(ctx, models.Event{
		Type:             models.EventCorrelationAttached,
		ElementGUID:      element.GUID,
		ElementType:      element.TypeName,
		AssetManagerGUID: am.GUID,
		Identifier:       record.ExternalIdentifier.Identifier,
	})
	return element.GUID, nil
}

// UpdateWithCorrelation validates the correlation, applies props with merge or replace
// semantics and records the synchronization. A correlated update of an element the
// asset manager has no record for attaches one.
func (m *Manager) UpdateWithCorrelation(ctx context.Context, guid string, corr models.Correlation, isMergeUpdate bool, props models.ElementProperties, opts models.RequestOptions) (err error) {
	const method = "UpdateWithCorrelation"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.UpdateWithCorrelation")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "elementGUID", guid); err != nil {
		return err
	}
	element, err := m.getElement(ctx, method, guid, opts)
	if err != nil {
		return err
	}
	if !isMergeUpdate {
		if err := m.checkRequiredProperty(method, element.TypeName, props); err != nil {
			return err
		}
	}

	check, err := m.checkCorrelation(ctx, method, element, corr)
	if err != nil {
		return err
	}
	if check.assetManager != nil && check.record == nil {
		if err := m.resolver.confirm(ctx, method, check.assetManager); err != nil {
			return err
		}
	}

	updated, err := m.elements.Update(ctx, guid, !isMergeUpdate, props, opts)
	if err != nil {
		return errors.Classify(method, err)
	}
	m.logger.WithContext(ctx).WithFields(map[string]any{
		"element_guid": guid,
		"merge":        isMergeUpdate,
		"version":      updated.Version,
	}).Info("Updated element")
	m.publish(ctx, models.Event{
		Type:        models.EventElementUpdated,
		ElementGUID: guid,
		ElementType: updated.TypeName,
		Version:     updated.Version,
	})

	if check.assetManager == nil {
		return nil
	}

	if check.record == nil {
		record := m.newRecord(updated, check.assetManager, corr)
		attachErr := errors.Classify(method, m.correlations.Attach(ctx, record))
		if attachErr == nil {
			m.publish(ctx, models.Event{
				Type:             models.EventCorrelationAttached,
				ElementGUID:      guid,
				ElementType:      updated.TypeName,
				AssetManagerGUID: check.assetManager.GUID,
				Identifier:       record.ExternalIdentifier.Identifier,
			})
			return nil
		}
		if !errors.IsConflict(attachErr) {
			return errors.WithMeta(attachErr, "element_guid", guid)
		}

		// Another update attached the record first; validate against what it stored.
		existing, err := m.correlations.Lookup(ctx, guid, check.assetManager.GUID)
		if err != nil {
			return errors.WithMeta(errors.Classify(method, err), "element_guid", guid)
		}
		if existing == nil {
			return errors.WithMeta(attachErr, "element_guid", guid)
		}
		adopt, err := m.compareIdentifier(ctx, method, guid, check.assetManager, existing, corr)
		if err != nil {
			return err
		}
		check.record, check.adopt = existing, adopt
	}

	if err := m.correlations.Update(ctx, m.touch(*check.record, updated, corr, check.adopt)); err != nil {
		return errors.WithMeta(errors.Classify(method, err), "element_guid", guid)
	}
	return nil
}

// RemoveWithCorrelation validates the correlation as UpdateWithCorrelation does, then
// deletes the element, the elements anchored to it and their correlation records.
func (m *Manager) RemoveWithCorrelation(ctx context.Context, guid string, corr models.Correlation, opts models.RequestOptions) (err error) {
	const method = "RemoveWithCorrelation"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.RemoveWithCorrelation")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "elementGUID", guid); err != nil {
		return err
	}
	element, err := m.getElement(ctx, method, guid, opts)
	if err != nil {
		return err
	}
	if _, err := m.checkCorrelation(ctx, method, element, corr); err != nil {
		return err
	}

	// Records may be cascaded away with the element.
	detached, err := m.correlations.ListForElement(ctx, guid)
	if err != nil {
		return errors.Classify(method, err)
	}

	removed, err := m.elements.Delete(ctx, guid, opts)
	if err != nil {
		return errors.Classify(method, err)
	}
	if !slices.Contains(removed, guid) {
		removed = append([]string{guid}, removed...)
	}

	for _, removedGUID := range removed {
		records, err := m.correlations.DetachAll(ctx, removedGUID)
		if err != nil {
			return errors.WithMeta(errors.Classify(method, err), "element_guid", removedGUID)
		}
		if err := m.relationships.RemoveForElement(ctx, removedGUID); err != nil {
			return errors.Classify(method, err)
		}
		for _, r := range records {
			if removedGUID == guid && slices.ContainsFunc(detached, func(d models.CorrelationRecord) bool { return d.AssetManagerGUID == r.AssetManagerGUID }) {
				continue
			}
			detached = append(detached, r)
		}
	}

	for _, r := range detached {
		m.publish(ctx, models.Event{
			Type:             models.EventCorrelationDetached,
			ElementGUID:      r.ElementGUID,
			ElementType:      r.ElementType,
			AssetManagerGUID: r.AssetManagerGUID,
			Identifier:       r.ExternalIdentifier.Identifier,
		})
	}
	for _, removedGUID := range removed {
		m.publish(ctx, models.Event{
			Type:        models.EventElementDeleted,
			ElementGUID: removedGUID,
		})
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"element_guid": guid,
		"removed":      len(removed),
	}).Info("Removed element")
	return nil
}

// ReconcileCorrelation overwrites the identifier stored for the asset manager. It is
// the explicit path for resolving a CorrelationMismatch.
func (m *Manager) ReconcileCorrelation(ctx context.Context, guid string, ref models.AssetManagerRef, identifier models.ExternalIdentifier, opts models.RequestOptions) (record *models.CorrelationRecord, err error) {
	const method = "ReconcileCorrelation"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.ReconcileCorrelation")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "elementGUID", guid); err != nil {
		return nil, err
	}
	if err := validateIdentifier(method, &identifier); err != nil {
		return nil, err
	}
	element, err := m.getElement(ctx, method, guid, opts)
	if err != nil {
		return nil, err
	}
	am, err := m.resolver.resolve(ctx, method, ref)
	if err != nil {
		return nil, err
	}

	existing, err := m.correlations.Lookup(ctx, guid, am.GUID)
	if err != nil {
		return nil, errors.Classify(method, err)
	}
	if existing == nil {
		return nil, errors.NotFound(method, "element %s is not correlated with asset manager %s", guid, am.QualifiedName).
			AddMetaValue("element_guid", guid).
			AddMetaValue("asset_manager_guid", am.GUID)
	}

	previous := existing.ExternalIdentifier.Identifier
	identifier.Identifier = strings.TrimSpace(identifier.Identifier)
	if identifier.KeyPattern == "" {
		identifier.KeyPattern = existing.ExternalIdentifier.KeyPattern
	}
	if identifier.MappingProperties == nil {
		identifier.MappingProperties = existing.ExternalIdentifier.MappingProperties
	}
	identifier = identifier.WithDefaults()

	now := m.now()
	identifier.LastSynchronized = &now
	record = existing
	record.ExternalIdentifier = identifier
	record.LastKnownVersion = element.Version
	record.UpdatedAt = now

	if err := m.correlations.Update(ctx, record); err != nil {
		return nil, errors.Classify(method, err)
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"element_guid":       guid,
		"asset_manager_guid": am.GUID,
		"previous":           previous,
		"identifier":         identifier.Identifier,
	}).Info("Reconciled external identifier")
	m.publish(ctx, models.Event{
		Type:             models.EventCorrelationReconciled,
		ElementGUID:      guid,
		ElementType:      element.TypeName,
		AssetManagerGUID: am.GUID,
		Identifier:       identifier.Identifier,
	})
	return record, nil
}
