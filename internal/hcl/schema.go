// Package hcl is the HCL-specific implementation of the config.Loader
// interface: it discovers, parses, and translates pipeline files and stage
// definition manifests into the format-agnostic config model.
package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Pipeline file schemas ---

// pipelineBlock represents the run-wide `pipeline` block.
type pipelineBlock struct {
	OutputDir string `hcl:"output_dir,optional"`
	LogDir    string `hcl:"log_dir,optional"`
	Resume    bool   `hcl:"resume,optional"`
}

// siteBlock represents a `site` block describing the resource envelope.
type siteBlock struct {
	Name         string `hcl:"name,label"`
	Nodes        int    `hcl:"nodes,optional"`
	CoresPerNode int    `hcl:"cores_per_node,optional"`
	MPICommand   string `hcl:"mpi_command,optional"`
	Image        string `hcl:"image,optional"`
	Volume       string `hcl:"volume,optional"`
}

// launcherBlock selects and parameterizes the launcher variant.
type launcherBlock struct {
	Name       string  `hcl:"name,label"`
	Interval   float64 `hcl:"interval,optional"`
	ExportPath string  `hcl:"export_path,optional"`
	Endpoint   string  `hcl:"endpoint,optional"`
}

// monitorBlock parameterizes the optional live event monitor.
type monitorBlock struct {
	URL       string `hcl:"url"`
	Namespace string `hcl:"namespace,optional"`
	EmitEvent string `hcl:"emit_event,optional"`
}

// inputBlock binds one overall pipeline input tag to a path.
type inputBlock struct {
	Tag  string `hcl:"tag,label"`
	Path string `hcl:"path"`
}

// optionsBody captures an open set of option attributes.
type optionsBody struct {
	Body hcl.Body `hcl:",remain"`
}

// stageBlock represents one `stage` instance declaration.
type stageBlock struct {
	Def      string            `hcl:"def,label"`
	Name     string            `hcl:"name,optional"`
	Aliases  map[string]string `hcl:"aliases,optional"`
	NProcess *int              `hcl:"nprocess,optional"`
	Threads  *int              `hcl:"threads_per_process,optional"`
	Nodes    *int              `hcl:"nodes,optional"`
	Options  *optionsBody      `hcl:"options,block"`
}

// --- Stage definition manifest schemas ---

// tagBlock declares one input or output connection point.
type tagBlock struct {
	Tag    string `hcl:"tag,label"`
	Format string `hcl:"format,optional"`
}

// optionBlock declares one entry of a stage's option schema. An option
// without a default is required.
type optionBlock struct {
	Name    string         `hcl:"name,label"`
	Type    hcl.Expression `hcl:"type"`
	Default *cty.Value     `hcl:"default,optional"`
}

// parallelBlock declares a stage definition's default resource shape.
type parallelBlock struct {
	NProcess int `hcl:"nprocess,optional"`
	Threads  int `hcl:"threads,optional"`
	Nodes    int `hcl:"nodes,optional"`
}

// stageDefBlock represents the manifest for one stage type.
type stageDefBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Module      string         `hcl:"module"`
	Interpreter string         `hcl:"interpreter,optional"`
	Inputs      []*tagBlock    `hcl:"input,block"`
	Outputs     []*tagBlock    `hcl:"output,block"`
	Options     []*optionBlock `hcl:"option,block"`
	Parallel    *parallelBlock `hcl:"parallel,block"`
}

// fileRoot is used to decode all possible top-level blocks from any file,
// so pipeline declarations and stage manifests may share files freely.
type fileRoot struct {
	Pipeline  *pipelineBlock   `hcl:"pipeline,block"`
	Site      *siteBlock       `hcl:"site,block"`
	Launcher  *launcherBlock   `hcl:"launcher,block"`
	Monitor   *monitorBlock    `hcl:"monitor,block"`
	Inputs    []*inputBlock    `hcl:"input,block"`
	Config    *optionsBody     `hcl:"config,block"`
	Stages    []*stageBlock    `hcl:"stage,block"`
	StageDefs []*stageDefBlock `hcl:"stage_def,block"`
	Remain    hcl.Body         `hcl:",remain"`
}
