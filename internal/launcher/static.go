package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/minirunner"
	"github.com/vk/stageflow/internal/pipeline"
	"github.com/vk/stageflow/internal/site"
)

// Static serializes the pipeline graph into a portable workflow
// description without executing anything: a pure, side-effect-free
// transform of the graph (the only write is the description file itself).
type Static struct{}

func (*Static) Name() string { return "static" }

// workflowDoc is the exported description schema. Stages appear in the
// deterministic dependency-consistent order, each with its reconstructible
// command line and its direct predecessors.
type workflowDoc struct {
	RunID     string             `json:"run_id"`
	Generated time.Time          `json:"generated"`
	Site      workflowSite       `json:"site"`
	Inputs    map[string]string  `json:"inputs"`
	Stages    []workflowStage    `json:"stages"`
}

type workflowSite struct {
	Name         string `json:"name"`
	Nodes        int    `json:"nodes"`
	CoresPerNode int    `json:"cores_per_node"`
}

type workflowStage struct {
	Name       string            `json:"name"`
	Definition string            `json:"definition"`
	Command    string            `json:"command"`
	Nodes      int               `json:"nodes"`
	Cores      int               `json:"cores"`
	Inputs     map[string]string `json:"inputs"`
	Outputs    map[string]string `json:"outputs"`
	After      []string          `json:"after"`
}

func (*Static) Execute(ctx context.Context, g *pipeline.Graph, s *site.Site, params Params) (*minirunner.Report, error) {
	logger := ctxlog.FromContext(ctx)

	if params.ExportPath == "" {
		return nil, &TranslationError{Launcher: "static", Reason: "no export_path configured"}
	}

	doc := workflowDoc{
		RunID:     uuid.NewString(),
		Generated: time.Now().UTC(),
		Site:      workflowSite{Name: s.Name, Nodes: s.NodeCount, CoresPerNode: s.CoresPerNode},
		Inputs:    map[string]string{},
		Stages:    make([]workflowStage, 0, len(g.Stages)),
	}
	for _, tag := range g.SortedInputTags() {
		doc.Inputs[tag] = g.Inputs[tag]
	}

	for _, si := range g.Stages {
		stage := workflowStage{
			Name:       si.Name,
			Definition: si.Def.Name,
			Command:    si.Command(s),
			Nodes:      si.Shape.Nodes,
			Cores:      si.Shape.Cores(),
			Inputs:     map[string]string{},
			Outputs:    map[string]string{},
			After:      g.Predecessors(si.Name),
		}
		for _, in := range si.Inputs {
			stage.Inputs[in.Tag] = in.Path
		}
		for _, out := range si.Outputs {
			stage.Outputs[out.Tag] = out.Path
		}
		doc.Stages = append(doc.Stages, stage)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &TranslationError{Launcher: "static", Reason: err.Error()}
	}
	if err := os.WriteFile(params.ExportPath, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing workflow description: %w", err)
	}

	logger.Info("📄 Wrote static workflow description.", "path", params.ExportPath, "stages", len(doc.Stages))
	return nil, nil
}
