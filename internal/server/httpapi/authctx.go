package httpapi

import (
	"context"

	"github.com/and161185/trophycase/internal/service"
)

type ctxKey string

const (
	viewerKey    ctxKey = "tc.viewer"
	requestIDKey ctxKey = "tc.requestID"
)

// WithViewer stores the resolved viewer in context.
func WithViewer(ctx context.Context, v service.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, v)
}

// ViewerFromCtx fetches the viewer; requests without a session get the anonymous viewer.
func ViewerFromCtx(ctx context.Context) service.Viewer {
	v, _ := ctx.Value(viewerKey).(service.Viewer)
	return v
}

// WithRequestID stores the request id in context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx returns the request id or "".
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
