package correlation

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// AttachRelationship links endOne to endTwo. Both elements must exist and, for known
// relationship types, be of the types the definition names. A home correlation marks
// the relationship as owned by that asset manager. Anchoring relationships make endOne
// the anchor of endTwo. Existing links are not deduplicated.
func (m *Manager) AttachRelationship(ctx context.Context, relType, endOneGUID, endTwoGUID string, props map[string]any, corr models.Correlation, opts models.RequestOptions) (guid string, err error) {
	const method = "AttachRelationship"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.AttachRelationship")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "relationshipType", relType); err != nil {
		return "", err
	}
	endOne, err := m.relationshipEnd(ctx, method, "endOneGUID", endOneGUID, opts)
	if err != nil {
		return "", err
	}
	endTwo, err := m.relationshipEnd(ctx, method, "endTwoGUID", endTwoGUID, opts)
	if err != nil {
		return "", err
	}
	if err := m.registry.CheckEnds(relType, endOne.TypeName, endTwo.TypeName); err != nil {
		return "", errors.InvalidParameter(method, "%s", err.Error()).AddMetaValue("relationship_type", relType)
	}

	rel := &models.Relationship{
		TypeName:   relType,
		EndOneGUID: endOne.GUID,
		EndTwoGUID: endTwo.GUID,
		Properties: props,
	}
	if ref, ok := corr.AssetManager(); ok {
		am, err := m.resolver.resolve(ctx, method, ref)
		if err != nil {
			return "", err
		}
		if corr.IsHome() {
			rel.HomeAssetManagerGUID = &am.GUID
		}
	}

	created, err := m.relationships.Relate(ctx, rel, opts)
	if err != nil {
		return "", errors.Classify(method, err)
	}

	if def, ok := m.registry.Relationship(relType); ok && def.Anchors {
		if err := m.elements.SetAnchor(ctx, endTwo.GUID, &endOne.GUID); err != nil {
			return created.GUID, errors.WithMeta(errors.Classify(method, err), "relationship_guid", created.GUID)
		}
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"relationship_guid": created.GUID,
		"relationship_type": relType,
		"end_one_guid":      endOne.GUID,
		"end_two_guid":      endTwo.GUID,
	}).Info("Attached relationship")
	m.publish(ctx, models.Event{
		Type:             models.EventRelationshipAttached,
		RelationshipGUID: created.GUID,
		RelationshipType: relType,
		EndOneGUID:       endOne.GUID,
		EndTwoGUID:       endTwo.GUID,
	})
	return created.GUID, nil
}

func (m *Manager) relationshipEnd(ctx context.Context, method, name, guid string, opts models.RequestOptions) (*models.Element, error) {
	if err := requireGUID(method, name, guid); err != nil {
		return nil, err
	}
	element, err := m.getElement(ctx, method, guid, opts)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.InvalidParameter(method, "%s %s does not reference an existing element", name, guid).AddMetaValue(name, guid)
		}
		return nil, err
	}
	return element, nil
}

// DetachRelationship removes the relationships of relType from endOne to endTwo.
// Detaching a link that does not exist is not an error. Links homed in an asset
// manager may only be removed with a correlation to that asset manager.
func (m *Manager) DetachRelationship(ctx context.Context, relType, endOneGUID, endTwoGUID string, corr models.Correlation, opts models.RequestOptions) (err error) {
	const method = "DetachRelationship"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.DetachRelationship")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "relationshipType", relType); err != nil {
		return err
	}
	if err := requireGUID(method, "endOneGUID", endOneGUID); err != nil {
		return err
	}
	if err := requireGUID(method, "endTwoGUID", endTwoGUID); err != nil {
		return err
	}

	existing, err := m.relationships.Find(ctx, relType, endOneGUID, endTwoGUID, opts)
	if err != nil {
		return errors.Classify(method, err)
	}
	if len(existing) == 0 {
		return nil
	}

	if !m.skipHomeCheck {
		var caller *models.AssetManager
		if ref, ok := corr.AssetManager(); ok {
			if caller, err = m.resolver.resolve(ctx, method, ref); err != nil {
				return err
			}
		}
		for _, rel := range existing {
			if rel.HomeAssetManagerGUID == nil {
				continue
			}
			if caller == nil || caller.GUID != *rel.HomeAssetManagerGUID {
				return errors.UserNotAuthorized(method, "relationship %s is homed in asset manager %s", rel.GUID, *rel.HomeAssetManagerGUID).
					AddMetaValue("relationship_guid", rel.GUID).
					AddMetaValue("home_asset_manager_guid", *rel.HomeAssetManagerGUID)
			}
		}
	}

	if err := m.relationships.Unrelate(ctx, relType, endOneGUID, endTwoGUID, opts); err != nil {
		return errors.Classify(method, err)
	}

	if def, ok := m.registry.Relationship(relType); ok && def.Anchors {
		if err := m.elements.SetAnchor(ctx, endTwoGUID, nil); err != nil && !errors.IsNotFound(errors.Classify(method, err)) {
			return errors.Classify(method, err)
		}
	}

	for _, rel := range existing {
		m.publish(ctx, models.Event{
			Type:             models.EventRelationshipDetached,
			RelationshipGUID: rel.GUID,
			RelationshipType: relType,
			EndOneGUID:       endOneGUID,
			EndTwoGUID:       endTwoGUID,
		})
	}
	m.logger.WithContext(ctx).WithFields(map[string]any{
		"relationship_type": relType,
		"end_one_guid":      endOneGUID,
		"end_two_guid":      endTwoGUID,
		"removed":           len(existing),
	}).Info("Detached relationship")
	return nil
}

// ListRelationships pages through the relationships that have guid at either end.
func (m *Manager) ListRelationships(ctx context.Context, guid string, paging models.Paging, opts models.RequestOptions) (rels []models.Relationship, err error) {
	const method = "ListRelationships"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.ListRelationships")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "elementGUID", guid); err != nil {
		return nil, err
	}
	paging, err = paging.Validate(method, m.maxPageSize)
	if err != nil {
		return nil, err
	}
	if _, err := m.getElement(ctx, method, guid, opts); err != nil {
		return nil, err
	}

	rels, err = m.relationships.List(ctx, guid, paging, opts)
	if err != nil {
		return nil, errors.Classify(method, err)
	}
	return rels, nil
}
