package main

import (
	"context"
	"io"
	"log/slog"
)

// shutdowner abstracts the authenticator so tests can verify cleanup behavior
// without constructing real infrastructure dependencies.
type shutdowner interface {
	Shutdown(context.Context) error
}

// cleanupStep is one named shutdown action.
type cleanupStep struct {
	name string
	run  func(context.Context) error
}

func shutdownStep(name string, s shutdowner) cleanupStep {
	if s == nil {
		return cleanupStep{name: name}
	}
	return cleanupStep{name: name, run: s.Shutdown}
}

func closeStep(name string, c io.Closer) cleanupStep {
	if c == nil {
		return cleanupStep{name: name}
	}
	return cleanupStep{name: name, run: func(context.Context) error { return c.Close() }}
}

// newCleanup returns a hook running steps in order. A failing step is
// logged and the rest still run: the authenticator drains its last-used
// queue through the store, so it must go before the store closes.
func newCleanup(ctx context.Context, steps ...cleanupStep) func() {
	return func() {
		for _, step := range steps {
			if step.run == nil {
				continue
			}
			if err := step.run(ctx); err != nil {
				slog.ErrorContext(ctx, "cleanup step failed", slog.String("step", step.name), slog.String("error", err.Error()))
			}
		}
	}
}
