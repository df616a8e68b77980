package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

type fieldKey int

const (
	traceIDKey fieldKey = iota
	spanIDKey
	requestIDKey
	providerKey
	modelKey
	conversationIDKey
)

// W3C trace context sizes in bytes.
const (
	traceIDBytes = 16
	spanIDBytes  = 8
)

func withField(ctx context.Context, key fieldKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func field(ctx context.Context, key fieldKey) string {
	value, _ := ctx.Value(key).(string)
	return value
}

// WithTraceID stores the trace id of the request.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withField(ctx, traceIDKey, traceID)
}

// WithSpanID stores the span id of the request.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return withField(ctx, spanIDKey, spanID)
}

// WithRequestID stores the request id, echoed back in X-Request-Id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, requestIDKey, requestID)
}

// WithProvider stores the name of the provider serving the request.
func WithProvider(ctx context.Context, provider string) context.Context {
	return withField(ctx, providerKey, provider)
}

// WithModel stores the completion model of the request.
func WithModel(ctx context.Context, model string) context.Context {
	return withField(ctx, modelKey, model)
}

// WithConversationID stores the conversation the request continues.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return withField(ctx, conversationIDKey, conversationID)
}

func GetTraceID(ctx context.Context) string        { return field(ctx, traceIDKey) }
func GetSpanID(ctx context.Context) string         { return field(ctx, spanIDKey) }
func GetRequestID(ctx context.Context) string      { return field(ctx, requestIDKey) }
func GetProvider(ctx context.Context) string       { return field(ctx, providerKey) }
func GetModel(ctx context.Context) string          { return field(ctx, modelKey) }
func GetConversationID(ctx context.Context) string { return field(ctx, conversationIDKey) }

func randomHex(n int) (string, bool) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", false
	}
	return hex.EncodeToString(buf), true
}

// GenerateTraceID returns 32 hex chars, or a uuid if randomness is unavailable.
func GenerateTraceID() string {
	if id, ok := randomHex(traceIDBytes); ok {
		return id
	}
	return uuid.NewString()
}

// GenerateSpanID returns 16 hex chars.
func GenerateSpanID() string {
	if id, ok := randomHex(spanIDBytes); ok {
		return id
	}
	return uuid.NewString()[:16]
}

// GenerateRequestID returns a fresh uuid.
func GenerateRequestID() string {
	return uuid.NewString()
}
