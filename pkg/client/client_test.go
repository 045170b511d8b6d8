package client_test

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/client"
	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/elementtypes"
	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newClient(t *testing.T) *client.Client {
	t.Helper()
	store := memstore.New()
	manager, err := correlation.NewManager(noopLogger(), elementtypes.Default(), correlation.Stores{
		Elements:      store.Elements(),
		Relationships: store.Relationships(),
		Correlations:  store.Correlations(),
		AssetManagers: store.AssetManagers(),
	}, correlation.Config{})
	require.NoError(t, err)

	server := httptest.NewServer(routes.NewRouter(routes.RouterConfig{Logger: noopLogger(), Manager: manager}))
	t.Cleanup(server.Close)

	cfg := client.DefaultConfig()
	cfg.BaseURL = server.URL
	c, err := client.NewClient(cfg, noopLogger())
	require.NoError(t, err)
	return c
}

func correlated(am *models.AssetManager, identifier string) *models.CorrelationRequest {
	return &models.CorrelationRequest{
		AssetManagerGUID:   am.GUID,
		ExternalIdentifier: &models.ExternalIdentifier{Identifier: identifier},
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := client.NewClient(client.Config{BaseURL: "localhost"}, noopLogger())
	assert.Error(t, err)
}

func TestAssetManagers(t *testing.T) {
	c := newClient(t)
	ctx := t.Context()

	am, err := c.RegisterAssetManager(ctx, models.RegisterAssetManagerRequest{QualifiedName: "catalog-a", DisplayName: "Catalog A"})
	require.NoError(t, err)
	require.NotEmpty(t, am.GUID)

	byGUID, err := c.GetAssetManager(ctx, am.GUID)
	require.NoError(t, err)
	assert.Equal(t, "catalog-a", byGUID.QualifiedName)

	byName, err := c.GetAssetManagerByName(ctx, "catalog-a")
	require.NoError(t, err)
	assert.Equal(t, am.GUID, byName.GUID)

	require.NoError(t, c.DeleteAssetManager(ctx, am.GUID))

	_, err = c.GetAssetManager(ctx, am.GUID)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestCorrelatedLifecycle(t *testing.T) {
	c := newClient(t)
	ctx := t.Context()

	am, err := c.RegisterAssetManager(ctx, models.RegisterAssetManagerRequest{QualifiedName: "catalog-a"})
	require.NoError(t, err)

	guid, err := c.CreateElement(ctx, elementtypes.TypeAsset, models.CreateElementRequest{
		Properties:  models.ElementProperties{QualifiedName: "asset:orders", DisplayName: "Orders"},
		Correlation: correlated(am, "orders-1"),
	})
	require.NoError(t, err)

	record, err := c.LookupCorrelation(ctx, guid, am.GUID, models.RequestOptions{})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "orders-1", record.ExternalIdentifier.Identifier)
	assert.Equal(t, models.KeyPatternLocal, record.ExternalIdentifier.KeyPattern)

	err = c.UpdateElement(ctx, guid, true, models.UpdateElementRequest{
		Properties:  models.ElementProperties{Description: "orders table"},
		Correlation: correlated(am, "orders-9"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCorrelationMismatch(err))

	require.NoError(t, c.UpdateElement(ctx, guid, true, models.UpdateElementRequest{
		Properties:  models.ElementProperties{Description: "orders table"},
		Correlation: correlated(am, "orders-1"),
	}))

	element, err := c.GetElement(ctx, guid, models.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, "orders table", element.Properties.Description)
	assert.Equal(t, "Orders", element.Properties.DisplayName)

	byName, err := c.GetElementsByName(ctx, elementtypes.TypeAsset, "Orders", models.Paging{}, models.RequestOptions{})
	require.NoError(t, err)
	require.Len(t, byName, 1)

	found, err := c.FindElements(ctx, models.FindElementsRequest{Criteria: models.SearchCriteria{SearchString: "ORDERS"}})
	require.NoError(t, err)
	require.Len(t, found, 1)

	known, err := c.FindByExternalIdentifier(ctx, am.GUID, "orders-1", models.Paging{}, models.RequestOptions{})
	require.NoError(t, err)
	require.Len(t, known, 1)
	assert.Equal(t, guid, known[0].GUID)

	records, err := c.ListCorrelations(ctx, guid, models.RequestOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	reconciled, err := c.ReconcileCorrelation(ctx, guid, am.GUID, models.ExternalIdentifier{Identifier: "orders-2"}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, "orders-2", reconciled.ExternalIdentifier.Identifier)

	require.NoError(t, c.RemoveElement(ctx, guid, models.RemoveElementRequest{Correlation: correlated(am, "orders-2")}))

	_, err = c.GetElement(ctx, guid, models.RequestOptions{})
	assert.True(t, errors.IsNotFound(err))
}

func TestRelationships(t *testing.T) {
	c := newClient(t)
	ctx := t.Context()

	conn, err := c.CreateElement(ctx, elementtypes.TypeConnection, models.CreateElementRequest{
		Properties: models.ElementProperties{QualifiedName: "connection:orders"},
	})
	require.NoError(t, err)
	endpoint, err := c.CreateElement(ctx, elementtypes.TypeEndpoint, models.CreateElementRequest{
		Properties: models.ElementProperties{QualifiedName: "endpoint:orders"},
	})
	require.NoError(t, err)

	relGUID, err := c.AttachRelationship(ctx, models.AttachRelationshipRequest{
		TypeName:   elementtypes.RelConnectionEndpoint,
		EndOneGUID: endpoint,
		EndTwoGUID: conn,
		Properties: map[string]any{"protocol": "https"},
	})
	require.NoError(t, err)

	rels, err := c.ListRelationships(ctx, conn, models.Paging{}, models.RequestOptions{})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, relGUID, rels[0].GUID)
	assert.Equal(t, "https", rels[0].Properties["protocol"])

	require.NoError(t, c.DetachRelationship(ctx, models.DetachRelationshipRequest{
		TypeName:   elementtypes.RelConnectionEndpoint,
		EndOneGUID: endpoint,
		EndTwoGUID: conn,
	}))

	rels, err = c.ListRelationships(ctx, conn, models.Paging{}, models.RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestErrorKinds(t *testing.T) {
	c := newClient(t)
	ctx := t.Context()

	_, err := c.RegisterAssetManager(ctx, models.RegisterAssetManagerRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))

	_, err = c.ListRelationships(ctx, "missing", models.Paging{PageSize: -1}, models.RequestOptions{})
	assert.True(t, errors.IsInvalidParameter(err))

	_, err = c.LookupCorrelation(ctx, "missing", "also-missing", models.RequestOptions{})
	require.Error(t, err)
	var de *errors.Error
	require.True(t, stderrors.As(err, &de))
	assert.Equal(t, http.StatusNotFound, de.Meta["status_code"])
}
