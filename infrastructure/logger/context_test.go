package logger_test

import (
	"context"
	"testing"

	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
)

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	l := mustTestLogger(t)
	ctx := logger.WithContext(context.Background(), l)

	if got := logger.FromContext(ctx); got != l {
		t.Errorf("FromContext returned %v, want the stored logger", got)
	}
}

func TestFromContext_NoLogger_ReturnsSharedFallback(t *testing.T) {
	t.Parallel()

	a := logger.FromContext(context.Background())
	b := logger.FromContext(context.Background())

	if a == nil || b == nil {
		t.Fatal("FromContext on empty context returned nil, want fallback logger")
	}
	if a != b {
		t.Error("FromContext returned different fallback instances, want one shared logger")
	}

	// warn-level fallback filters debug/info but must not panic
	a.Debug("debug message")
	a.Warn("sweep lock held elsewhere", logger.String("lock", "sweep"))
}

func TestWithContext_ChildLoggerKeepsFields(t *testing.T) {
	t.Parallel()

	base := mustTestLogger(t)
	child := base.With(logger.String("request_id", "abc-123"))

	ctx := logger.WithContext(context.Background(), child)
	got := logger.FromContext(ctx)

	if got != child {
		t.Error("FromContext did not return the child logger")
	}
	if got == base {
		t.Error("With() returned the base logger, want a new instance")
	}
}

func TestNew_ConsoleFormatOnlyInDevelopment(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		l, err := logger.New(logger.Config{
			Level:       "debug",
			Format:      logger.FormatConsole,
			Development: dev,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			t.Fatalf("New(development=%v) error = %v", dev, err)
		}
		l.Debug("scheduler logger ready", logger.Bool("development", dev))
	}
}

func mustTestLogger(t *testing.T) logger.Logger {
	t.Helper()

	l, err := logger.New(logger.Config{
		Level:       "warn",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return l
}
