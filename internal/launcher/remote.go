package launcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resty.dev/v3"

	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/minirunner"
	"github.com/vk/stageflow/internal/pipeline"
	"github.com/vk/stageflow/internal/site"
)

// Remote hands the pipeline to an external workflow manager over its REST
// API and tracks the run remotely. The manager owns scheduling; this
// variant only translates the graph, submits it, and polls for the
// outcome.
type Remote struct{}

func (*Remote) Name() string { return "remote" }

// remoteTask is one task in the submission payload.
type remoteTask struct {
	Name      string   `json:"name"`
	Command   string   `json:"command"`
	Nodes     int      `json:"nodes"`
	Cores     int      `json:"cores"`
	DependsOn []string `json:"depends_on"`
}

type remoteSubmission struct {
	Tasks []remoteTask `json:"tasks"`
}

type remoteRun struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Tasks []struct {
		Name     string `json:"name"`
		State    string `json:"state"`
		ExitCode int    `json:"exit_code"`
	} `json:"tasks"`
}

func (*Remote) Execute(ctx context.Context, g *pipeline.Graph, s *site.Site, params Params) (*minirunner.Report, error) {
	logger := ctxlog.FromContext(ctx)

	if params.Endpoint == "" {
		return nil, &TranslationError{Launcher: "remote", Reason: "no endpoint configured"}
	}

	submission := remoteSubmission{Tasks: make([]remoteTask, 0, len(g.Stages))}
	for _, si := range g.Stages {
		submission.Tasks = append(submission.Tasks, remoteTask{
			Name:      si.Name,
			Command:   si.Command(s),
			Nodes:     si.Shape.Nodes,
			Cores:     si.Shape.Cores(),
			DependsOn: g.Predecessors(si.Name),
		})
	}

	client := resty.New().SetBaseURL(params.Endpoint)
	defer client.Close()

	var run remoteRun
	resp, err := client.R().
		SetContext(ctx).
		SetBody(submission).
		SetResult(&run).
		Post("/api/v1/runs")
	if err != nil {
		return nil, fmt.Errorf("submitting run to workflow manager: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("workflow manager rejected submission: %s: %s", resp.Status(), resp.String())
	}
	if run.ID == "" {
		return nil, fmt.Errorf("workflow manager returned no run id")
	}

	logger.Info("🚀 Submitted pipeline to workflow manager.",
		"endpoint", params.Endpoint, "run_id", run.ID, "tasks", len(submission.Tasks))

	return pollRemote(ctx, client, run.ID, params.Interval)
}

// pollRemote watches the remote run until it settles and translates the
// final task states into a run report.
func pollRemote(ctx context.Context, client *resty.Client, runID string, interval time.Duration) (*minirunner.Report, error) {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var run remoteRun
		resp, err := client.R().
			SetContext(ctx).
			SetResult(&run).
			Get("/api/v1/runs/" + runID)
		if err != nil {
			return nil, fmt.Errorf("polling run %s: %w", runID, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("polling run %s: %s", runID, resp.Status())
		}

		switch run.State {
		case "succeeded", "failed", "aborted":
		default:
			logger.Debug("Remote run still in progress.", "run_id", runID, "state", run.State)
			continue
		}

		report := &minirunner.Report{RunID: runID}
		for _, task := range run.Tasks {
			report.Records = append(report.Records, minirunner.JobRecord{
				Name:     task.Name,
				State:    remoteState(task.State),
				ExitCode: task.ExitCode,
			})
		}
		if run.State == "succeeded" {
			logger.Info("✅ Remote run completed successfully.", "run_id", runID)
		} else {
			logger.Error("❌ Remote run finished with failures.", "run_id", runID, "state", run.State)
		}
		return report, nil
	}
}

// remoteState maps the workflow manager's task states onto the local
// vocabulary; anything unrecognized on a settled run counts as aborted.
func remoteState(state string) minirunner.State {
	switch state {
	case "succeeded":
		return minirunner.Succeeded
	case "failed":
		return minirunner.Failed
	case "running":
		return minirunner.Running
	case "pending", "queued":
		return minirunner.Pending
	default:
		return minirunner.Aborted
	}
}
