package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/appctx"
	"github.com/Ramsey-B/clover/pkg/errors"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newServer(handler echo.HandlerFunc, mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = Error(noopLogger())
	e.Use(Context())
	e.GET("/test", handler, mw...)
	return e
}

func serve(e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, ErrorResponse) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
		wantMeta string
	}{
		{
			name:     "domain error",
			err:      errors.CorrelationMismatch("UpdateWithCorrelation", "identifier differs").AddMetaValue("stored_identifier", "tbl-1"),
			wantCode: http.StatusConflict,
			wantKind: string(errors.KindCorrelationMismatch),
			wantMeta: "stored_identifier",
		},
		{
			name:     "wrapped domain error",
			err:      fmt.Errorf("handler: %w", errors.NotFound("GetByGUID", "element guid-1 not found")),
			wantCode: http.StatusNotFound,
			wantKind: string(errors.KindNotFound),
			wantMeta: "method",
		},
		{
			name:     "http error",
			err:      httperror.NewHTTPError(http.StatusServiceUnavailable, "store unavailable"),
			wantCode: http.StatusServiceUnavailable,
			wantKind: string(errors.KindPropertyServer),
		},
		{
			name:     "store conflict",
			err:      httperror.NewHTTPError(http.StatusConflict, "element guid-1 already exists"),
			wantCode: http.StatusConflict,
			wantKind: string(errors.KindConflict),
		},
		{
			name:     "echo error",
			err:      echo.NewHTTPError(http.StatusBadRequest, "bad body"),
			wantCode: http.StatusBadRequest,
			wantKind: string(errors.KindInvalidParameter),
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("boom"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newServer(func(c echo.Context) error { return tt.err })
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(echo.HeaderXRequestID, "req-1")

			rec, body := serve(e, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, "req-1", body.RequestID)
			if tt.wantMeta != "" {
				assert.Contains(t, body.Meta, tt.wantMeta)
			}
		})
	}
}

func TestContextSetsRequestValues(t *testing.T) {
	var requestID, assetManager string
	e := newServer(func(c echo.Context) error {
		requestID = appctx.GetRequestID(c.Request().Context())
		assetManager = appctx.GetAssetManager(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderAssetManager, "catalog")

	rec, _ := serve(e, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "catalog", assetManager)
}

type fakeVerifier struct {
	claims *UserClaims
	err    error
}

func (f fakeVerifier) Verify(_ context.Context, raw string) (*UserClaims, error) {
	if raw != "good" {
		return nil, fmt.Errorf("bad signature")
	}
	return f.claims, f.err
}

func TestAuthentication(t *testing.T) {
	var userID string
	handler := func(c echo.Context) error {
		userID = appctx.GetUserID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}
	auth := Authentication(noopLogger(), fakeVerifier{claims: &UserClaims{Sub: "user-1"}})
	e := newServer(handler, auth)

	t.Run("missing token", func(t *testing.T) {
		rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "missing bearer", body.Message)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer bad")
		rec, _ := serve(e, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer good")
		rec, _ := serve(e, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-1", userID)
	})
}
