package core

import "context"

type contextKey string

const (
	ctxKeyUploadID  contextKey = "upload_id"
	ctxKeyIPAddress contextKey = "client_ip"
)

// ContextWithUploadID tags a context with the id of the schema upload being applied.
func ContextWithUploadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUploadID, id)
}

// UploadIDFromContext extracts the upload id, if any.
func UploadIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUploadID).(string); ok {
		return v
	}
	return ""
}

// ContextWithIPAddress adds the client IP for upload logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// IPAddressFromContext extracts the client IP.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
