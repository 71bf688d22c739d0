package grpcx

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
)

// RequestIDMetadataKey carries the request id in gRPC metadata.
const RequestIDMetadataKey = "x-request-id"

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func NewRequestID() string { return uuid.NewString() }

const maxRequestIDLen = 128

// incomingRequestID returns the caller's id, or a fresh one when it is
// missing or implausibly long.
func incomingRequestID(vals []string) string {
	if len(vals) == 0 {
		return NewRequestID()
	}
	id := strings.TrimSpace(vals[0])
	if id == "" || len(id) > maxRequestIDLen {
		return NewRequestID()
	}
	return id
}
