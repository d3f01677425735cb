package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/google/uuid"
)

// WithRequestMetadata tags ctx with the client IP and a fresh upload id
// so the schema application can be correlated in the logs.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, r.RemoteAddr) // already rewritten by TrustedRealIP
	ctx = core.ContextWithUploadID(ctx, uuid.NewString())
	return ctx
}
