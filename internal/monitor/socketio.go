package monitor

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/stageflow/internal/config"
	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/minirunner"
)

// defaultEmitEvent is the event name used when the monitor block does not
// override it.
const defaultEmitEvent = "pipeline_event"

// SocketIO streams job lifecycle events to a dashboard over a socket.io
// websocket connection.
type SocketIO struct {
	io        *socket.Socket
	manager   *socket.Manager
	emitEvent string
}

// NewSocketIO connects to the monitor endpoint described by the config
// block. The connection is established in the background; events emitted
// before it settles are buffered by the client.
func NewSocketIO(ctx context.Context, cfg *config.MonitorConfig) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("monitor: failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Monitor connected.", "url", cfg.URL, "namespace", cfg.Namespace, "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		logger.Warn("Monitor connection error.", "url", cfg.URL, "error", fmt.Sprint(errs...))
	})

	io.Connect()

	emitEvent := cfg.EmitEvent
	if emitEvent == "" {
		emitEvent = defaultEmitEvent
	}

	return &SocketIO{io: io, manager: manager, emitEvent: emitEvent}, nil
}

// Report emits one lifecycle event. The client buffers while the
// connection settles and drops on persistent failure: a broken dashboard
// must never fail a pipeline.
func (s *SocketIO) Report(ctx context.Context, event minirunner.Event) {
	payload := map[string]any{
		"type":   string(event.Type),
		"job":    event.Job,
		"time":   event.Time.Format(time.RFC3339),
		"detail": event.Detail,
	}
	ctxlog.FromContext(ctx).Debug("Emitting monitor event.", "event", s.emitEvent, "type", string(event.Type), "job", event.Job)
	s.io.Emit(s.emitEvent, payload)
}

// Close disconnects from the dashboard.
func (s *SocketIO) Close() {
	s.io.Disconnect()
}
