package appctx

import "context"

// ContextKey namespaces the values stored on a request context.
type ContextKey string

var (
	RequestIDKey    = ContextKey("X-Request-Id")
	MethodKey       = ContextKey("X-Method")
	RouteKey        = ContextKey("X-Route")
	RemoteIPKey     = ContextKey("X-Remote-Ip")
	UserIDKey       = ContextKey("X-User-Id")
	AssetManagerKey = ContextKey("X-Asset-Manager")
)

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID gets the request ID from the context
func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID gets the user ID from the context
func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	return getString(ctx, MethodKey)
}

// SetRoute sets the matched route in the context
func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

// GetRoute gets the matched route from the context
func GetRoute(ctx context.Context) string {
	return getString(ctx, RouteKey)
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return context.WithValue(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string {
	return getString(ctx, RemoteIPKey)
}

// SetAssetManager records the asset manager the caller claims to act for.
// It is informational only; correlation checks use the explicit request values.
func SetAssetManager(ctx context.Context, assetManager string) context.Context {
	return context.WithValue(ctx, AssetManagerKey, assetManager)
}

// GetAssetManager gets the calling asset manager from the context
func GetAssetManager(ctx context.Context) string {
	return getString(ctx, AssetManagerKey)
}

func getString(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}
