// Package context holds the timeouts shared by H3 Network processes.
package context

import (
	"context"
	"time"
)

const (
	// DefaultPingTimeout bounds startup and health pings.
	DefaultPingTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// WithPingTimeout derives a context for a dependency ping.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}

// WithShutdownTimeout returns a fresh context for shutdown work that must
// run after the parent has been cancelled.
func WithShutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DefaultShutdownTimeout)
}

// WithOptionalTimeout applies d when positive, otherwise only adds cancellation.
func WithOptionalTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
