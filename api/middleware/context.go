package middleware

import "context"

type contextKey string

const (
	ctxSessionKey contextKey = "session_key"
	ctxAdminUser  contextKey = "admin_user"
)

// SessionKeyFromContext returns the opaque storefront session key, or "".
func SessionKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionKey).(string); ok {
		return v
	}
	return ""
}

// AdminUserFromContext returns the authenticated operator username, or "".
func AdminUserFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminUser).(string); ok {
		return v
	}
	return ""
}

// WithSessionKey injects the session key into the context.
func WithSessionKey(ctx context.Context, sessionKey string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionKey, sessionKey)
}

// WithAdminUser injects the operator username into the context.
func WithAdminUser(ctx context.Context, username string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAdminUser, username)
}
