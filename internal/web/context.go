package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/feedback-sentiment/internal/core"
	"github.com/JonMunkholm/feedback-sentiment/internal/web/middleware"
)

// WithRequestMetadata adds IP and User-Agent to context for the audit record.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, middleware.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
