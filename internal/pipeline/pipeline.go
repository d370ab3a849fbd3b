// Package pipeline assembles declared stages into a validated dependency
// graph: it resolves aliases and file paths, checks the single-producer
// and acyclicity invariants, resolves per-stage options, and exposes the
// ordered stage set every launcher consumes.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stageflow/internal/config"
	"github.com/vk/stageflow/internal/ctxlog"
	"github.com/vk/stageflow/internal/graph"
	"github.com/vk/stageflow/internal/registry"
)

// externalProducer is the pseudo-producer name used when a tag is supplied
// by the overall pipeline inputs rather than a stage.
const externalProducer = "overall pipeline input"

// Overrides carries the command-line layer of the option overlay: unscoped
// keys apply to every stage, scoped keys to one.
type Overrides struct {
	Global   map[string]cty.Value
	PerStage map[string]map[string]cty.Value
}

// Graph is the validated pipeline: stage instances in a deterministic
// dependency-consistent order, their edges, and the run-wide paths.
type Graph struct {
	Stages    []*StageInstance
	Inputs    map[string]string
	OutputDir string
	LogDir    string

	byName map[string]*StageInstance
	dag    *graph.Graph
}

// Stage returns the instance with the given name.
func (g *Graph) Stage(name string) (*StageInstance, bool) {
	si, ok := g.byName[name]
	return si, ok
}

// Predecessors returns the names of the stages the given stage directly
// depends on.
func (g *Graph) Predecessors(name string) []string {
	deps, err := g.dag.Dependencies(name)
	if err != nil {
		return nil
	}
	return deps
}

// Successors returns the names of the stages directly depending on the
// given stage.
func (g *Graph) Successors(name string) []string {
	deps, err := g.dag.Dependents(name)
	if err != nil {
		return nil
	}
	return deps
}

// Build constructs a validated pipeline graph from the loaded model.
// Every construction defect is detected here, before any job exists:
// unknown or duplicated stages, duplicate producers (DuplicateOutputError),
// unresolvable inputs (UnresolvedInputError), cycles (CycleError), and
// unsatisfiable option schemas (config.MissingConfigError).
func Build(ctx context.Context, reg *registry.Registry, model *config.Model, overrides *Overrides) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting pipeline graph construction.", "stages", len(model.Stages))

	if overrides == nil {
		overrides = &Overrides{}
	}

	g := &Graph{
		Inputs:    model.Inputs,
		OutputDir: model.Run.OutputDir,
		LogDir:    model.Run.LogDir,
		byName:    make(map[string]*StageInstance),
		dag:       graph.New(),
	}

	// First pass: instantiate every declared stage, binding output tags to
	// paths under the output directory.
	files := NewFiles()
	producers := make(map[string]string)
	var declOrder []string

	for tag, path := range model.Inputs {
		files.Insert(tag, path, "")
		producers[tag] = externalProducer
	}

	instances := make([]*StageInstance, 0, len(model.Stages))
	for _, ref := range model.Stages {
		def, ok := reg.Lookup(ref.Def)
		if !ok {
			return nil, fmt.Errorf("stage '%s': unknown stage_def '%s'", ref.InstanceName(), ref.Def)
		}

		name := ref.InstanceName()
		if _, ok := g.byName[name]; ok {
			return nil, fmt.Errorf("duplicate stage name '%s' in pipeline", name)
		}

		shape := def.Shape
		if ref.Shape != nil {
			shape = *ref.Shape
		}

		si := &StageInstance{Def: def, Name: name, Shape: shape}

		for _, out := range def.Outputs {
			tag := aliasTag(ref, out.Tag)
			if prev, ok := producers[tag]; ok {
				return nil, &DuplicateOutputError{Tag: tag, Producers: []string{prev, name}}
			}
			path := filepath.Join(model.Run.OutputDir, tag+"."+out.Format)
			producers[tag] = name
			files.Insert(tag, path, out.Format)
			si.Outputs = append(si.Outputs, BoundTag{Tag: tag, Format: out.Format, Path: path})
		}

		instances = append(instances, si)
		g.byName[name] = si
		g.dag.AddNode(name)
		declOrder = append(declOrder, name)
	}
	logger.Debug("Build: stage instantiation complete.", "instances", len(instances), "tags", files.Len())

	// Second pass: resolve every input tag to its single producer and link
	// the dependency edges.
	for i, si := range instances {
		ref := model.Stages[i]
		for _, in := range si.Def.Inputs {
			tag := aliasTag(ref, in.Tag)
			producer, ok := producers[tag]
			if !ok {
				return nil, &UnresolvedInputError{Stage: si.Name, Tag: tag}
			}

			path, _ := files.Path(tag)
			si.Inputs = append(si.Inputs, BoundTag{Tag: tag, Format: in.Format, Path: path})

			if producer == externalProducer {
				continue
			}
			if err := g.dag.AddEdge(producer, si.Name); err != nil {
				return nil, fmt.Errorf("linking stage '%s' input '%s': %w", si.Name, tag, err)
			}
		}
	}
	logger.Debug("Build: input resolution and linking complete.")

	// Third pass: validate acyclicity and fix the deterministic ordering,
	// breaking ties by declaration order.
	if err := g.dag.DetectCycles(); err != nil {
		return nil, &CycleError{Err: err}
	}
	ordered, err := g.dag.StableTopoSort(declOrder)
	if err != nil {
		return nil, &CycleError{Err: err}
	}
	for _, name := range ordered {
		g.Stages = append(g.Stages, g.byName[name])
	}
	logger.Debug("Build: cycle detection and ordering complete.")

	// Fourth pass: resolve every stage's option set against its schema.
	for i, si := range instances {
		ref := model.Stages[i]
		cli := mergeLayers(overrides.Global, overrides.PerStage[si.Name])
		resolved, err := config.ResolveOptions(si.Name, si.Def.Options, cli, ref.Options, model.Global)
		if err != nil {
			return nil, err
		}
		si.Options = resolved
	}
	logger.Debug("Build: option resolution complete.")

	logger.Debug("Build: pipeline graph construction successful.")
	return g, nil
}

// aliasTag applies a stage's alias map: a tag may be remapped to a
// different physical name so two stages can disagree on a tag name while
// sharing one artifact, or so one definition can appear twice without its
// outputs colliding.
func aliasTag(ref *config.StageRef, tag string) string {
	if ref.Aliases == nil {
		return tag
	}
	if aliased, ok := ref.Aliases[tag]; ok {
		return aliased
	}
	return tag
}

// mergeLayers overlays the scoped CLI layer on the unscoped one.
func mergeLayers(global, scoped map[string]cty.Value) map[string]cty.Value {
	if len(scoped) == 0 {
		return global
	}
	merged := make(map[string]cty.Value, len(global)+len(scoped))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range scoped {
		merged[k] = v
	}
	return merged
}

// SortedInputTags returns the overall input tags in lexical order, for
// deterministic rendering by exporters.
func (g *Graph) SortedInputTags() []string {
	tags := make([]string, 0, len(g.Inputs))
	for tag := range g.Inputs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
