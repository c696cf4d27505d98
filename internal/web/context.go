package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/fileimport/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for import logging.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already processed by chi middleware.RealIP
	ctx = core.ContextWithIPAddress(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
