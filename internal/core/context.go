package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "request_ip"
	ctxKeyUserAgent contextKey = "request_ua"
)

// ContextWithIPAddress records the caller's IP for import run logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent records the caller's User-Agent for import run logging.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// GetIPAddressFromContext extracts the IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetUserAgentFromContext extracts the User-Agent from context.
func GetUserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// requestAttrs returns logging attributes for the caller recorded in ctx.
func requestAttrs(ctx context.Context) []any {
	var attrs []any
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		attrs = append(attrs, "ip", ip)
	}
	if ua := GetUserAgentFromContext(ctx); ua != "" {
		attrs = append(attrs, "user_agent", ua)
	}
	return attrs
}
