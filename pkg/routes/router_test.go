package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/elementtypes"
	"github.com/Ramsey-B/clover/pkg/memstore"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes"
	"github.com/Ramsey-B/clover/pkg/routes/health"
)

type api struct {
	t       *testing.T
	handler http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	store := memstore.New()
	manager, err := correlation.NewManager(logger, elementtypes.Default(), correlation.Stores{
		Elements:      store.Elements(),
		Relationships: store.Relationships(),
		Correlations:  store.Correlations(),
		AssetManagers: store.AssetManagers(),
	}, correlation.Config{})
	require.NoError(t, err)

	return &api{t: t, handler: routes.NewRouter(routes.RouterConfig{
		Logger:  logger,
		Manager: manager,
		Health:  health.NewChecker("test"),
	})}
}

func (a *api) do(method, path string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (a *api) registerAssetManager(name string) models.AssetManager {
	a.t.Helper()
	var am models.AssetManager
	code := a.do(http.MethodPost, "/api/v1/asset-managers", models.RegisterAssetManagerRequest{QualifiedName: name}, &am)
	require.Equal(a.t, http.StatusCreated, code)
	return am
}

func (a *api) createElement(typeName string, req models.CreateElementRequest) string {
	a.t.Helper()
	var resp models.ElementGUIDResponse
	code := a.do(http.MethodPost, "/api/v1/elements/"+typeName, req, &resp)
	require.Equal(a.t, http.StatusCreated, code)
	require.NotEmpty(a.t, resp.GUID)
	return resp.GUID
}

func TestCorrelatedElementLifecycle(t *testing.T) {
	a := newAPI(t)
	am := a.registerAssetManager("catalog-a")

	guid := a.createElement(elementtypes.TypeAsset, models.CreateElementRequest{
		Properties: models.ElementProperties{QualifiedName: "asset:orders"},
		Correlation: &models.CorrelationRequest{
			AssetManagerGUID:   am.GUID,
			ExternalIdentifier: &models.ExternalIdentifier{Identifier: "orders-1"},
		},
	})

	var lookup models.CorrelationLookupResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/elements/"+guid+"/correlations/"+am.GUID, nil, &lookup))
	require.NotNil(t, lookup.Record)
	assert.Equal(t, "orders-1", lookup.Record.ExternalIdentifier.Identifier)

	var errResp middleware.ErrorResponse
	code := a.do(http.MethodPatch, "/api/v1/elements/"+guid, models.UpdateElementRequest{
		Properties: models.ElementProperties{DisplayName: "Orders"},
		Correlation: &models.CorrelationRequest{
			AssetManagerGUID:   am.GUID,
			ExternalIdentifier: &models.ExternalIdentifier{Identifier: "orders-2"},
		},
	}, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CorrelationMismatch", errResp.Kind)

	var reconciled models.CorrelationRecord
	code = a.do(http.MethodPost, "/api/v1/elements/"+guid+"/correlations/"+am.GUID+"/reconcile",
		models.ReconcileRequest{ExternalIdentifier: models.ExternalIdentifier{Identifier: "orders-2"}}, &reconciled)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "orders-2", reconciled.ExternalIdentifier.Identifier)

	code = a.do(http.MethodPatch, "/api/v1/elements/"+guid, models.UpdateElementRequest{
		Properties: models.ElementProperties{DisplayName: "Orders"},
		Correlation: &models.CorrelationRequest{
			AssetManagerGUID:   am.GUID,
			ExternalIdentifier: &models.ExternalIdentifier{Identifier: "orders-2"},
		},
	}, nil)
	require.Equal(t, http.StatusNoContent, code)

	var element models.Element
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/elements/"+guid, nil, &element))
	assert.Equal(t, "Orders", element.Properties.DisplayName)
	assert.Equal(t, "asset:orders", element.Properties.QualifiedName)

	var found models.ElementListResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/asset-managers/"+am.GUID+"/elements?identifier=orders-2", nil, &found))
	require.Len(t, found.Items, 1)
	assert.Equal(t, guid, found.Items[0].GUID)

	code = a.do(http.MethodPost, "/api/v1/elements/"+guid+"/remove", models.RemoveElementRequest{
		Correlation: &models.CorrelationRequest{
			AssetManagerGUID:   am.GUID,
			ExternalIdentifier: &models.ExternalIdentifier{Identifier: "orders-2"},
		},
	}, nil)
	require.Equal(t, http.StatusNoContent, code)

	errResp = middleware.ErrorResponse{}
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/elements/"+guid, nil, &errResp))
	assert.Equal(t, "NotFound", errResp.Kind)
}

func TestLookupUncorrelatedElement(t *testing.T) {
	a := newAPI(t)
	am := a.registerAssetManager("catalog-a")
	guid := a.createElement(elementtypes.TypeAsset, models.CreateElementRequest{
		Properties: models.ElementProperties{QualifiedName: "asset:local"},
	})

	var lookup models.CorrelationLookupResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/elements/"+guid+"/correlations/"+am.GUID, nil, &lookup))
	assert.Nil(t, lookup.Record)

	var list models.CorrelationListResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/elements/"+guid+"/correlations", nil, &list))
	assert.Empty(t, list.Items)
}

func TestRelationshipRoutes(t *testing.T) {
	a := newAPI(t)
	conn := a.createElement(elementtypes.TypeConnection, models.CreateElementRequest{
		Properties: models.ElementProperties{QualifiedName: "connection:orders"},
	})
	asset := a.createElement(elementtypes.TypeAsset, models.CreateElementRequest{
		Properties: models.ElementProperties{QualifiedName: "asset:orders"},
	})

	var created models.RelationshipGUIDResponse
	code := a.do(http.MethodPost, "/api/v1/relationships", models.AttachRelationshipRequest{
		TypeName:   elementtypes.RelConnectionToAsset,
		EndOneGUID: conn,
		EndTwoGUID: asset,
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, created.GUID)

	var list models.RelationshipListResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/elements/"+asset+"/relationships", nil, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, created.GUID, list.Items[0].GUID)

	code = a.do(http.MethodPost, "/api/v1/relationships/remove", models.DetachRelationshipRequest{
		TypeName:   elementtypes.RelConnectionToAsset,
		EndOneGUID: conn,
		EndTwoGUID: asset,
	}, nil)
	require.Equal(t, http.StatusNoContent, code)

	list = models.RelationshipListResponse{}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/elements/"+asset+"/relationships", nil, &list))
	assert.Empty(t, list.Items)
}

func TestBadRequests(t *testing.T) {
	a := newAPI(t)

	var errResp middleware.ErrorResponse
	code := a.do(http.MethodPost, "/api/v1/asset-managers", map[string]any{}, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)

	errResp = middleware.ErrorResponse{}
	code = a.do(http.MethodGet, "/api/v1/asset-managers/missing", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NotFound", errResp.Kind)

	code = a.do(http.MethodGet, "/api/v1/elements/by-name?type=Asset&name=x&page_size=-1", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOperationalRoutes(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/health", nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
