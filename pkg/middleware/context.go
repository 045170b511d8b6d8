package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/appctx"
)

const (
	HeaderUserID = "X-User-ID"
	// HeaderAssetManager names the asset manager a caller acts for. It is informational;
	// correlation decisions use the correlation in the request body.
	HeaderAssetManager = "X-Asset-Manager"
)

// Context copies request metadata onto the request context
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = appctx.SetRequestID(ctx, requestID)
			ctx = appctx.SetMethod(ctx, req.Method)
			ctx = appctx.SetRoute(ctx, req.URL.Path)
			ctx = appctx.SetRemoteIP(ctx, c.RealIP())
			ctx = appctx.SetUserID(ctx, req.Header.Get(HeaderUserID))
			ctx = appctx.SetAssetManager(ctx, req.Header.Get(HeaderAssetManager))

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
