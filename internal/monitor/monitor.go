// Package monitor fans job lifecycle events out to observers: the log, and
// optionally a live dashboard over socket.io. Monitoring never affects the
// run outcome; delivery problems are logged and dropped.
package monitor

import (
	"context"
	"time"

	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/minirunner"
)

// Reporter consumes job lifecycle events.
type Reporter interface {
	Report(ctx context.Context, event minirunner.Event)
	Close()
}

// Fanout delivers every event to each wrapped reporter in order.
type Fanout struct {
	reporters []Reporter
}

// NewFanout composes reporters into one.
func NewFanout(reporters ...Reporter) *Fanout {
	return &Fanout{reporters: reporters}
}

func (f *Fanout) Report(ctx context.Context, event minirunner.Event) {
	for _, r := range f.reporters {
		r.Report(ctx, event)
	}
}

func (f *Fanout) Close() {
	for _, r := range f.reporters {
		r.Close()
	}
}

// Callback adapts a Reporter to the runner's callback signature.
func Callback(ctx context.Context, r Reporter) minirunner.Callback {
	return func(event minirunner.Event) {
		r.Report(ctx, event)
	}
}

// LogReporter writes lifecycle events to the structured log. The runner
// already logs its own transitions at Info; this reporter exists so traces
// remain visible when only a custom reporter set is installed.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, event minirunner.Event) {
	ctxlog.FromContext(ctx).Debug("Pipeline event.",
		"type", string(event.Type),
		"job", event.Job,
		"time", event.Time.Format(time.RFC3339),
		"detail", event.Detail,
	)
}

func (LogReporter) Close() {}
