package utils

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
)

// QueryOptions reads effective_time (RFC 3339), for_lineage and for_duplicate_processing.
func QueryOptions(c echo.Context) (models.RequestOptions, error) {
	var opts models.RequestOptions
	var effective time.Time

	err := echo.QueryParamsBinder(c).
		Time("effective_time", &effective, time.RFC3339).
		Bool("for_lineage", &opts.ForLineage).
		Bool("for_duplicate_processing", &opts.ForDuplicateProcessing).
		BindError()
	if err != nil {
		return opts, httperror.WrapError(http.StatusBadRequest, err)
	}
	if !effective.IsZero() {
		opts.EffectiveTime = &effective
	}
	return opts, nil
}

// QueryPaging reads start_from and page_size. Bounds are checked by the manager.
func QueryPaging(c echo.Context) (models.Paging, error) {
	var paging models.Paging
	err := echo.QueryParamsBinder(c).
		Int("start_from", &paging.StartFrom).
		Int("page_size", &paging.PageSize).
		BindError()
	if err != nil {
		return paging, httperror.WrapError(http.StatusBadRequest, err)
	}
	return paging, nil
}
