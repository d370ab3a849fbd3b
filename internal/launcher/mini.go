package launcher

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/minirunner"
	"github.com/vk/stageflow/internal/pipeline"
	"github.com/vk/stageflow/internal/site"
)

// Mini executes the pipeline locally by delegating to the minirunner
// scheduler: one job per stage instance, scheduled against a node/core
// pool sized from the site.
type Mini struct{}

func (*Mini) Name() string { return "mini" }

func (*Mini) Execute(ctx context.Context, g *pipeline.Graph, s *site.Site, params Params) (*minirunner.Report, error) {
	logger := ctxlog.FromContext(ctx)

	for _, dir := range []string{g.OutputDir, g.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating run directory %s: %w", dir, err)
		}
	}

	pool := minirunner.NewHostPool(s.Hostname(), s.NodeCount, s.CoresPerNode)
	opts := []minirunner.Option{minirunner.WithResume(params.Resume)}
	if params.Callback != nil {
		opts = append(opts, minirunner.WithCallback(params.Callback))
	}
	runner := minirunner.New(pool, g.LogDir, opts...)

	for _, si := range g.Stages {
		job := minirunner.NewJob(
			si.Name,
			si.Command(s),
			si.Shape.Nodes,
			coresPerNode(si.Shape.Cores(), si.Shape.Nodes),
			si.OutputPaths(),
		)
		if err := runner.Submit(job, g.Predecessors(si.Name)...); err != nil {
			return nil, err
		}
	}

	logger.Info("🚀 Starting pipeline execution.",
		"stages", len(g.Stages), "nodes", s.NodeCount, "cores_per_node", s.CoresPerNode)
	return runner.Run(ctx, params.Interval)
}

// coresPerNode spreads a stage's total core request over its node count,
// rounding up so the per-node grant always covers the processes placed on
// that node.
func coresPerNode(totalCores, nodes int) int {
	if nodes < 1 {
		nodes = 1
	}
	return (totalCores + nodes - 1) / nodes
}
