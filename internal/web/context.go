package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/dataelevate/internal/core"
	"github.com/JonMunkholm/dataelevate/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to the context for
// pipeline log lines.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, middleware.ClientIP(r), r.UserAgent())
}
