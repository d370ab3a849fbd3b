// Package config defines the unified, format-agnostic model of a pipeline
// run and the option-resolution rules applied to it.
package config

import (
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the entire
// run configuration: stage definitions, the stage instances to execute,
// the overall pipeline inputs, and the site/launcher/monitor settings.
type Model struct {
	Defs     map[string]*StageDef
	Stages   []*StageRef
	Inputs   map[string]string
	Site     *SiteConfig
	Launcher *LauncherConfig
	Monitor  *MonitorConfig
	Run      *RunConfig
	// Global holds the unscoped option section applied to every stage.
	Global map[string]cty.Value
}

// StageDef describes one registered stage type: what it consumes and
// produces, which options it understands, and how it is invoked.
// Definitions are immutable once the pipeline is assembled.
type StageDef struct {
	Name        string
	Description string
	// Interpreter and Module form the entry point: the stage runs as
	// `<interpreter> -m <module> <name> --tag=path ...`.
	Interpreter string
	Module      string
	Inputs      []TagDecl
	Outputs     []TagDecl
	Options     []OptionDecl
	Shape       Shape
}

// TagDecl declares a single input or output connection point. Format names
// the on-disk file format and doubles as the path extension.
type TagDecl struct {
	Tag    string
	Format string
}

// OptionDecl declares one configuration option in a stage's schema. An
// option with a nil Default is required.
type OptionDecl struct {
	Name    string
	Type    cty.Type
	Default *cty.Value
}

// Shape is the resource request of a stage: how many (usually MPI)
// processes, how many threads each, and how many nodes they spread over.
type Shape struct {
	NProcess int
	Threads  int
	Nodes    int
}

// Cores returns the total core count implied by the shape.
func (s Shape) Cores() int {
	return s.NProcess * s.Threads
}

// DefaultShape is the resource request used when a definition or instance
// declares nothing: one single-threaded process on one node.
func DefaultShape() Shape {
	return Shape{NProcess: 1, Threads: 1, Nodes: 1}
}

// StageRef declares one stage instance inside a pipeline: which definition
// it runs, an optional distinct instance name (so the same definition can
// appear twice), tag aliases, resource overrides, and its option section.
type StageRef struct {
	Def     string
	Name    string
	Aliases map[string]string
	Shape   *Shape
	Options map[string]cty.Value
}

// InstanceName returns the effective instance name: the declared name when
// present, otherwise the definition name.
func (r *StageRef) InstanceName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Def
}

// SiteConfig describes the resource envelope for the run.
type SiteConfig struct {
	Name         string
	Nodes        int
	CoresPerNode int
	MPICommand   string
	Image        string
	Volume       string
}

// LauncherConfig selects and parameterizes the launcher variant.
type LauncherConfig struct {
	Name string
	// Interval is the poll interval in seconds for the mini launcher.
	Interval float64
	// ExportPath is where the static launcher writes its description.
	ExportPath string
	// Endpoint is the base URL of the external workflow manager for the
	// remote launcher.
	Endpoint string
}

// MonitorConfig parameterizes the optional live event monitor.
type MonitorConfig struct {
	URL       string
	Namespace string
	EmitEvent string
}

// RunConfig holds the run-wide paths and the resume switch.
type RunConfig struct {
	OutputDir string
	LogDir    string
	Resume    bool
}
