package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerBody struct {
	QualifiedName string `json:"qualified_name" validate:"required"`
}

func newContext(method, target, body string) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestBindRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := BindRequest[registerBody](newContext(http.MethodPost, "/", `{"qualified_name":"catalog"}`))
		require.NoError(t, err)
		assert.Equal(t, "catalog", got.QualifiedName)
	})

	t.Run("fails validation", func(t *testing.T) {
		_, err := BindRequest[registerBody](newContext(http.MethodPost, "/", `{}`))
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := BindRequest[registerBody](newContext(http.MethodPost, "/", `{`))
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestQueryOptions(t *testing.T) {
	opts, err := QueryOptions(newContext(http.MethodGet, "/?effective_time=2025-03-14T09:00:00Z&for_lineage=true", ""))
	require.NoError(t, err)
	require.NotNil(t, opts.EffectiveTime)
	assert.True(t, opts.EffectiveTime.Equal(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)))
	assert.True(t, opts.ForLineage)
	assert.False(t, opts.ForDuplicateProcessing)

	opts, err = QueryOptions(newContext(http.MethodGet, "/", ""))
	require.NoError(t, err)
	assert.Nil(t, opts.EffectiveTime)

	_, err = QueryOptions(newContext(http.MethodGet, "/?effective_time=yesterday", ""))
	assert.Error(t, err)
}

func TestQueryPaging(t *testing.T) {
	paging, err := QueryPaging(newContext(http.MethodGet, "/?start_from=20&page_size=10", ""))
	require.NoError(t, err)
	assert.Equal(t, 20, paging.StartFrom)
	assert.Equal(t, 10, paging.PageSize)

	_, err = QueryPaging(newContext(http.MethodGet, "/?page_size=ten", ""))
	assert.Error(t, err)
}
