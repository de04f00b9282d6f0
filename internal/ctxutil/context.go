// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	sessionIDKey contextKey = "ctxutil.sessionID"
	userIDKey    contextKey = "ctxutil.userID"
	requestIDKey contextKey = "ctxutil.requestID"
	channelKey   contextKey = "ctxutil.channel"
)

// Channels a query can arrive through.
const (
	ChannelWeb  = "web"
	ChannelLINE = "line"
	ChannelCLI  = "cli"
)

func getString(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithSessionID adds a conversation session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionID retrieves the session ID from the context.
// Returns an empty string if not set.
func GetSessionID(ctx context.Context) string {
	return getString(ctx, sessionIDKey)
}

// WithUserID adds a user ID to the context.
// For LINE events this is the LINE user ID; it keys per-user rate limiting.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID retrieves the user ID from the context.
func GetUserID(ctx context.Context) string {
	return getString(ctx, userIDKey)
}

// WithRequestID adds a request ID to the context for tracing.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// MustGetRequestID retrieves the request ID from the context.
// Panics if the request ID is not found.
func MustGetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		panic("ctxutil: requestID not found")
	}
	return requestID
}

// WithChannel records which surface the query came from.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

// GetChannel returns the channel, empty if unset.
func GetChannel(ctx context.Context) string {
	return getString(ctx, channelKey)
}

// PreserveTracing creates a detached context that keeps only tracing values.
// The new context is independent of the parent's cancellation and deadlines.
//
// Use for work that must outlive the request that started it, such as LINE
// events processed after the webhook has already answered 200.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if sessionID := GetSessionID(ctx); sessionID != "" {
		newCtx = WithSessionID(newCtx, sessionID)
	}
	if userID := GetUserID(ctx); userID != "" {
		newCtx = WithUserID(newCtx, userID)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}
	if channel := GetChannel(ctx); channel != "" {
		newCtx = WithChannel(newCtx, channel)
	}

	return newCtx
}
