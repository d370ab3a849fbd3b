package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/stageflow/internal/ctxlog"
)

// Validate performs a strict sanity check over every registered stage
// definition: a usable entry point, no tag declared twice within one
// definition, no tag that is both input and output of the same stage, and
// no option declared twice. All problems are reported together.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for name, def := range r.defs {
		if def.Module == "" {
			errs = append(errs, fmt.Sprintf("stage_def '%s': missing module (no entry point to invoke)", name))
		}
		if def.Shape.NProcess < 1 || def.Shape.Threads < 1 || def.Shape.Nodes < 1 {
			errs = append(errs, fmt.Sprintf("stage_def '%s': resource shape must be positive", name))
		}

		seen := make(map[string]string)
		for _, in := range def.Inputs {
			if prev, ok := seen[in.Tag]; ok {
				errs = append(errs, fmt.Sprintf("stage_def '%s': tag '%s' declared twice (%s and input)", name, in.Tag, prev))
				continue
			}
			seen[in.Tag] = "input"
		}
		for _, out := range def.Outputs {
			if prev, ok := seen[out.Tag]; ok {
				errs = append(errs, fmt.Sprintf("stage_def '%s': tag '%s' declared twice (%s and output)", name, out.Tag, prev))
				continue
			}
			seen[out.Tag] = "output"
		}

		opts := make(map[string]struct{})
		for _, opt := range def.Options {
			if _, ok := opts[opt.Name]; ok {
				errs = append(errs, fmt.Sprintf("stage_def '%s': option '%s' declared twice", name, opt.Name))
				continue
			}
			opts[opt.Name] = struct{}{}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validation passed.", "stage_defs", len(r.defs))
	return nil
}
