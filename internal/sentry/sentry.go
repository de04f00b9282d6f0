// Package sentry initializes the Sentry SDK against a Better Stack Errors
// application and reports degraded failures from the responder chain.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/buildinfo"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/ctxutil"
)

// Config holds Sentry configuration for Better Stack integration.
type Config struct {
	// Token is the Better Stack Errors application token.
	Token string

	// Host is the Better Stack Errors ingesting host (e.g., "errors.betterstack.com").
	Host string

	Environment string
	ServerName  string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	Debug bool
}

// DSN builds the Better Stack DSN, https://TOKEN@HOST/1. The project id is
// required by the SDK and ignored by Better Stack.
func (c Config) DSN() (string, error) {
	if c.Host == "" {
		return "", errors.New("sentry host is required when token is provided")
	}
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host), nil
}

// Initialize sets up the SDK. An empty Token leaves Sentry disabled and
// returns nil.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          buildinfo.Release(),
		ServerName:       cfg.ServerName,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// Report captures err with the tracing values from ctx and the given tags.
// It uses the request hub attached by the gin middleware when present.
// Report is a no-op while Sentry is disabled.
func Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if id := ctxutil.GetSessionID(ctx); id != "" {
			scope.SetTag("session_id", id)
		}
		if id, ok := ctxutil.GetRequestID(ctx); ok && id != "" {
			scope.SetTag("request_id", id)
		}
		if ch := ctxutil.GetChannel(ctx); ch != "" {
			scope.SetTag("channel", ch)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}
