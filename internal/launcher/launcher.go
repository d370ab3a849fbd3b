// Package launcher turns a validated pipeline graph into actual (or
// described) execution. Every variant consumes the same graph, whose
// single-producer and acyclicity invariants are already guaranteed by
// construction; variants differ only in what they do with it.
package launcher

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/stageflow/internal/minirunner"
	"github.com/vk/stageflow/internal/pipeline"
	"github.com/vk/stageflow/internal/site"
)

// Params carries the launcher-variant settings resolved from the run
// configuration.
type Params struct {
	// Interval is the poll interval for execution-capable variants.
	Interval time.Duration
	// Resume skips jobs whose declared outputs already exist.
	Resume bool
	// Callback receives job lifecycle events (mini variant).
	Callback minirunner.Callback
	// ExportPath is the static variant's destination file.
	ExportPath string
	// Endpoint is the remote variant's workflow-manager base URL.
	Endpoint string
}

// Launcher produces a runnable schedule from a pipeline graph. Execution
// variants return the run report; the static variant returns a nil report
// because nothing executes.
type Launcher interface {
	Name() string
	Execute(ctx context.Context, g *pipeline.Graph, s *site.Site, params Params) (*minirunner.Report, error)
}

// TranslationError reports a graph that could not be expressed in a target
// system's model. It is fatal for the run and surfaces before anything
// executes; the in-memory graph is left untouched.
type TranslationError struct {
	Launcher string
	Reason   string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("launcher '%s': cannot translate pipeline: %s", e.Launcher, e.Reason)
}

// For returns the launcher variant registered under the given name.
func For(name string) (Launcher, error) {
	switch name {
	case "mini":
		return &Mini{}, nil
	case "static":
		return &Static{}, nil
	case "remote":
		return &Remote{}, nil
	default:
		return nil, fmt.Errorf("unknown launcher '%s' (expected mini, static, or remote)", name)
	}
}
