package correlation

import (
	"context"
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// RegisterAssetManager records an external system. Registering a qualified name twice
// returns the existing registration.
func (m *Manager) RegisterAssetManager(ctx context.Context, req models.RegisterAssetManagerRequest) (am *models.AssetManager, err error) {
	const method = "RegisterAssetManager"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.RegisterAssetManager")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	name := strings.TrimSpace(req.QualifiedName)
	if name == "" {
		return nil, errors.InvalidParameter(method, "qualifiedName is required").AddMetaValue("parameter", "qualifiedName")
	}

	existing, err := m.assetManagers.GetByName(ctx, name)
	if err != nil {
		return nil, errors.Classify(method, err)
	}
	if existing != nil {
		return existing, nil
	}

	am, err = m.assetManagers.Create(ctx, &models.AssetManager{
		QualifiedName:              name,
		DisplayName:                req.DisplayName,
		Description:                req.Description,
		DeployedImplementationType: req.DeployedImplementationType,
	})
	if err != nil {
		err = errors.Classify(method, err)
		if !errors.IsConflict(err) {
			return nil, err
		}
		// A concurrent registration of the same name won.
		existing, getErr := m.assetManagers.GetByName(ctx, name)
		if getErr != nil {
			return nil, errors.Classify(method, getErr)
		}
		if existing == nil {
			return nil, err
		}
		m.resolver.add(existing)
		return existing, nil
	}
	m.resolver.add(am)

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"asset_manager_guid": am.GUID,
		"qualified_name":     am.QualifiedName,
	}).Info("Registered asset manager")
	m.publish(ctx, models.Event{
		Type:             models.EventAssetManagerCreated,
		AssetManagerGUID: am.GUID,
	})
	return am, nil
}

// GetAssetManager returns the registration named by ref, or NotFound.
func (m *Manager) GetAssetManager(ctx context.Context, ref models.AssetManagerRef) (am *models.AssetManager, err error) {
	const method = "GetAssetManager"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.GetAssetManager")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	am, err = m.resolver.resolve(ctx, method, ref)
	if err != nil {
		if errors.IsInvalidParameter(err) && !ref.IsEmpty() {
			return nil, errors.NotFound(method, "asset manager %s not found", ref.String()).AddMetaValue("asset_manager", ref.String())
		}
		return nil, err
	}
	return am, nil
}

// DeleteAssetManager removes the registration and its correlation records. The
// elements it correlated stay in place.
func (m *Manager) DeleteAssetManager(ctx context.Context, guid string) (err error) {
	const method = "DeleteAssetManager"
	ctx, span := tracing.StartSpan(ctx, "correlation.Manager.DeleteAssetManager")
	defer span.End()
	defer m.observe(method, time.Now(), span, &err)

	if err := requireGUID(method, "assetManagerGUID", guid); err != nil {
		return err
	}
	am, err := m.resolver.resolve(ctx, method, models.AssetManagerRef{GUID: guid})
	if err != nil {
		if errors.IsInvalidParameter(err) {
			return errors.NotFound(method, "asset manager %s not found", guid).AddMetaValue("asset_manager_guid", guid)
		}
		return err
	}

	orphaned, err := m.correlations.DetachAssetManager(ctx, am.GUID)
	if err != nil {
		return errors.Classify(method, err)
	}
	if err := m.assetManagers.Delete(ctx, am.GUID); err != nil {
		return errors.Classify(method, err)
	}
	m.resolver.forget(am)

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"asset_manager_guid": am.GUID,
		"orphaned_records":   orphaned,
	}).Info("Deleted asset manager")
	return nil
}
