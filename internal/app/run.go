package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/stageflow/internal/config"
	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/launcher"
	"github.com/vk/stageflow/internal/monitor"
	"github.com/vk/stageflow/internal/pipeline"
	"github.com/vk/stageflow/internal/site"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	cliGlobal, cliPerStage, err := config.ParseOverrides(appConfig.Overrides)
	if err != nil {
		return err
	}

	a.logger.Debug("Building pipeline graph from config model...")
	graph, err := pipeline.Build(ctx, a.registry, a.model, &pipeline.Overrides{
		Global:   cliGlobal,
		PerStage: cliPerStage,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline graph: %w", err)
	}
	a.logger.Debug("Pipeline graph built.", "stages", len(graph.Stages))

	if len(graph.Stages) == 0 {
		a.logger.Warn("No stages found in pipeline, execution not required.")
		return nil
	}

	runSite := site.FromConfig(a.model.Site)

	launcherName := a.model.Launcher.Name
	if appConfig.Launcher != "" {
		launcherName = appConfig.Launcher
	}
	l, err := launcher.For(launcherName)
	if err != nil {
		return err
	}

	reporters := []monitor.Reporter{monitor.LogReporter{}}
	if a.model.Monitor != nil && a.model.Monitor.URL != "" {
		sio, err := monitor.NewSocketIO(ctx, a.model.Monitor)
		if err != nil {
			// A broken dashboard must never fail a pipeline.
			a.logger.Warn("Monitor unavailable, continuing without it.", "error", err)
		} else {
			reporters = append(reporters, sio)
		}
	}
	fanout := monitor.NewFanout(reporters...)
	defer fanout.Close()

	params := launcher.Params{
		Interval:   time.Duration(a.model.Launcher.Interval * float64(time.Second)),
		Resume:     appConfig.Resume || a.model.Run.Resume,
		Callback:   monitor.Callback(ctx, fanout),
		ExportPath: a.model.Launcher.ExportPath,
		Endpoint:   a.model.Launcher.Endpoint,
	}

	a.logger.Info("▶️ Launching pipeline.", "launcher", l.Name(), "stages", len(graph.Stages))
	report, err := l.Execute(ctx, graph, runSite, params)
	if err != nil {
		if report != nil {
			a.printSummary(report)
		}
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.")

	if report == nil {
		return nil
	}
	a.printSummary(report)
	if !report.Success() {
		return fmt.Errorf("pipeline run %s finished with failures", report.RunID)
	}
	return nil
}
