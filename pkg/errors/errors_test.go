package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := CorrelationMismatch("UpdateWithCorrelation", "identifier %q does not match %q", "Y", "X")

	assert.True(t, IsCorrelationMismatch(err))
	assert.False(t, IsInvalidParameter(err))

	wrapped := fmt.Errorf("sync failed: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrCorrelationMismatch))
	assert.Equal(t, KindCorrelationMismatch, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	err := InvalidParameter("CreateWithCorrelation", "qualifiedName is required")
	assert.Equal(t, "CreateWithCorrelation: InvalidParameter: qualifiedName is required", err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "http not found", err: httperror.NewHTTPError(http.StatusNotFound, "element x not found"), want: KindNotFound},
		{name: "http bad request", err: httperror.NewHTTPError(http.StatusBadRequest, "bad"), want: KindInvalidParameter},
		{name: "http forbidden", err: httperror.NewHTTPError(http.StatusForbidden, "no"), want: KindUserNotAuthorized},
		{name: "http conflict", err: httperror.NewHTTPError(http.StatusConflict, "asset manager CatalogX already exists"), want: KindConflict},
		{name: "http internal", err: httperror.NewHTTPError(http.StatusInternalServerError, "boom"), want: KindPropertyServer},
		{name: "deadline", err: context.DeadlineExceeded, want: KindPropertyServer},
		{name: "plain", err: stderrors.New("connection reset"), want: KindPropertyServer},
		{name: "already classified", err: NotFound("", "gone"), want: KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("GetByGUID", tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.want, KindOf(got))

			var e *Error
			require.True(t, stderrors.As(got, &e))
			assert.Equal(t, "GetByGUID", e.Method)
		})
	}

	assert.NoError(t, Classify("GetByGUID", nil))
}

func TestClassify_KeepsExistingMethod(t *testing.T) {
	inner := InvalidParameter("Paging.Validate", "pageSize must not be negative")
	got := Classify("Find", inner)

	var e *Error
	require.True(t, stderrors.As(got, &e))
	assert.Equal(t, "Paging.Validate", e.Method)
}

func TestToHTTPError(t *testing.T) {
	err := PropertyServer("CreateWithCorrelation", "failed to attach correlation").AddMetaValue("element_guid", "c-1")
	herr := err.ToHTTPError()

	assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(herr))
	assert.Equal(t, "c-1", herr.Meta["element_guid"])
	assert.Equal(t, "PropertyServerException", herr.Meta["kind"])
}

func TestWithMeta(t *testing.T) {
	original := PropertyServer("CreateWithCorrelation", "store unavailable")
	tagged := WithMeta(original, "element_guid", "c-1")

	assert.Equal(t, "c-1", tagged.(*Error).Meta["element_guid"])
	assert.Nil(t, original.Meta)

	plain := stderrors.New("plain")
	assert.Same(t, plain, WithMeta(plain, "element_guid", "c-1"))
}

func TestConflictIsDistinctFromMismatch(t *testing.T) {
	stored := Classify("RegisterAssetManager", httperror.NewHTTPError(http.StatusConflict, "already exists"))
	assert.True(t, IsConflict(stored))
	assert.False(t, IsCorrelationMismatch(stored))

	mismatch := CorrelationMismatch("UpdateWithCorrelation", "identifier differs")
	assert.False(t, IsConflict(mismatch))
	assert.Equal(t, http.StatusConflict, StatusCode(KindConflict))
	assert.Equal(t, http.StatusConflict, mismatch.StatusCode())
}
