package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/appctx"
	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Message   string         `json:"message"`
	Kind      string         `json:"kind,omitempty"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

// Error renders domain errors, ectoerror HTTP errors and echo errors as ErrorResponse.
func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal Server Error"
		kind := ""
		meta := map[string]any{}

		var he *echo.HTTPError
		var de *errors.Error
		switch {
		case stderrors.As(err, &de):
			herr := de.ToHTTPError()
			code = de.StatusCode()
			message = herr.Error()
			kind = string(de.Kind)
			meta = herr.Meta
		case httperror.IsHTTPError(err):
			herr := httperror.ToHTTPError(err)
			code = httperror.GetStatusCode(err)
			message = herr.Error()
			kind = string(errors.KindForStatus(code))
			meta = herr.Meta
		case stderrors.As(err, &he):
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
			kind = string(errors.KindForStatus(code))
		}

		log := logger.WithContext(ctx).WithError(err).WithField("status", code)
		if code >= http.StatusInternalServerError {
			log.Error("api is returning an error")
		} else {
			log.Warn("api is returning an error")
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			Kind:      kind,
			RequestID: appctx.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}
