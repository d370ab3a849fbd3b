package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stageflow/internal/config"
	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL configuration loading process. It is
// agnostic to the origin of the paths and parses any valid block from any
// file, so pipeline declarations and stage manifests can be split across
// files however the user likes.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{
		Defs:   make(map[string]*config.StageDef),
		Inputs: make(map[string]string),
		Global: make(map[string]cty.Value),
	}

	files, err := fsutil.CollectHCLFiles(paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := l.mergeRoot(model, &root, file); err != nil {
			return nil, err
		}
	}

	applyDefaults(model)

	logger.Debug("HCL loading complete.",
		"stage_defs", len(model.Defs), "stages", len(model.Stages), "inputs", len(model.Inputs))
	return model, nil
}

// mergeRoot folds one decoded file into the model, rejecting blocks that
// may only appear once per run.
func (l *Loader) mergeRoot(model *config.Model, root *fileRoot, file string) error {
	if root.Pipeline != nil {
		if model.Run != nil {
			return fmt.Errorf("%s: duplicate 'pipeline' block (already declared elsewhere)", file)
		}
		model.Run = &config.RunConfig{
			OutputDir: root.Pipeline.OutputDir,
			LogDir:    root.Pipeline.LogDir,
			Resume:    root.Pipeline.Resume,
		}
	}

	if root.Site != nil {
		if model.Site != nil {
			return fmt.Errorf("%s: duplicate 'site' block (already declared elsewhere)", file)
		}
		model.Site = &config.SiteConfig{
			Name:         root.Site.Name,
			Nodes:        root.Site.Nodes,
			CoresPerNode: root.Site.CoresPerNode,
			MPICommand:   root.Site.MPICommand,
			Image:        root.Site.Image,
			Volume:       root.Site.Volume,
		}
	}

	if root.Launcher != nil {
		if model.Launcher != nil {
			return fmt.Errorf("%s: duplicate 'launcher' block (already declared elsewhere)", file)
		}
		model.Launcher = &config.LauncherConfig{
			Name:       root.Launcher.Name,
			Interval:   root.Launcher.Interval,
			ExportPath: root.Launcher.ExportPath,
			Endpoint:   root.Launcher.Endpoint,
		}
	}

	if root.Monitor != nil {
		if model.Monitor != nil {
			return fmt.Errorf("%s: duplicate 'monitor' block (already declared elsewhere)", file)
		}
		model.Monitor = &config.MonitorConfig{
			URL:       root.Monitor.URL,
			Namespace: root.Monitor.Namespace,
			EmitEvent: root.Monitor.EmitEvent,
		}
	}

	for _, in := range root.Inputs {
		if _, ok := model.Inputs[in.Tag]; ok {
			return fmt.Errorf("%s: duplicate pipeline input for tag '%s'", file, in.Tag)
		}
		model.Inputs[in.Tag] = in.Path
	}

	if root.Config != nil {
		vals, err := decodeOptionsBody(root.Config)
		if err != nil {
			return fmt.Errorf("%s: invalid 'config' block: %w", file, err)
		}
		for name, val := range vals {
			if _, ok := model.Global[name]; ok {
				return fmt.Errorf("%s: global option '%s' set more than once", file, name)
			}
			model.Global[name] = val
		}
	}

	for _, block := range root.Stages {
		ref, err := translateStage(block)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		model.Stages = append(model.Stages, ref)
	}

	for _, block := range root.StageDefs {
		def, err := translateStageDef(block)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if _, ok := model.Defs[def.Name]; ok {
			return fmt.Errorf("%s: duplicate stage_def '%s'", file, def.Name)
		}
		model.Defs[def.Name] = def
	}

	return nil
}

// applyDefaults fills in the blocks and fields a minimal pipeline file is
// allowed to omit.
func applyDefaults(model *config.Model) {
	if model.Run == nil {
		model.Run = &config.RunConfig{}
	}
	if model.Run.OutputDir == "" {
		model.Run.OutputDir = "."
	}
	if model.Run.LogDir == "" {
		model.Run.LogDir = "."
	}

	if model.Site == nil {
		model.Site = &config.SiteConfig{Name: "local"}
	}
	if model.Site.Nodes <= 0 {
		model.Site.Nodes = 1
	}
	if model.Site.CoresPerNode <= 0 {
		model.Site.CoresPerNode = 1
	}
	if model.Site.MPICommand == "" {
		model.Site.MPICommand = "mpirun -n"
	}

	if model.Launcher == nil {
		model.Launcher = &config.LauncherConfig{Name: "mini"}
	}
	if model.Launcher.Interval <= 0 {
		model.Launcher.Interval = 3
	}
}
