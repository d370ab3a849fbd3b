package hcl

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stageflow/internal/config"
)

// decodeOptionsBody evaluates every attribute of an open options body into
// a literal cty value. Option values are plain literals; there is no
// expression scope to evaluate against.
func decodeOptionsBody(body *optionsBody) (map[string]cty.Value, error) {
	attrs, diags := body.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	vals := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("option '%s': %w", name, diags)
		}
		vals[name] = val
	}
	return vals, nil
}

// translateStage converts a decoded `stage` block into a config.StageRef.
func translateStage(block *stageBlock) (*config.StageRef, error) {
	ref := &config.StageRef{
		Def:     block.Def,
		Name:    block.Name,
		Aliases: block.Aliases,
		Options: map[string]cty.Value{},
	}

	if block.NProcess != nil || block.Threads != nil || block.Nodes != nil {
		shape := config.DefaultShape()
		if block.NProcess != nil {
			shape.NProcess = *block.NProcess
		}
		if block.Threads != nil {
			shape.Threads = *block.Threads
		}
		if block.Nodes != nil {
			shape.Nodes = *block.Nodes
		}
		if shape.NProcess < 1 || shape.Threads < 1 || shape.Nodes < 1 {
			return nil, fmt.Errorf("stage '%s': nprocess, threads_per_process, and nodes must be positive", ref.InstanceName())
		}
		ref.Shape = &shape
	}

	if block.Options != nil {
		vals, err := decodeOptionsBody(block.Options)
		if err != nil {
			return nil, fmt.Errorf("stage '%s': %w", ref.InstanceName(), err)
		}
		ref.Options = vals
	}

	return ref, nil
}

// translateStageDef converts a decoded `stage_def` manifest block into a
// config.StageDef.
func translateStageDef(block *stageDefBlock) (*config.StageDef, error) {
	def := &config.StageDef{
		Name:        block.Name,
		Description: block.Description,
		Module:      block.Module,
		Interpreter: block.Interpreter,
		Shape:       config.DefaultShape(),
	}
	if def.Interpreter == "" {
		def.Interpreter = "python3"
	}

	for _, in := range block.Inputs {
		def.Inputs = append(def.Inputs, translateTag(in))
	}
	for _, out := range block.Outputs {
		def.Outputs = append(def.Outputs, translateTag(out))
	}

	for _, opt := range block.Options {
		typ, err := typeExprToCtyType(opt.Type)
		if err != nil {
			return nil, fmt.Errorf("stage_def '%s', option '%s': %w", def.Name, opt.Name, err)
		}
		def.Options = append(def.Options, config.OptionDecl{
			Name:    opt.Name,
			Type:    typ,
			Default: opt.Default,
		})
	}

	if block.Parallel != nil {
		if block.Parallel.NProcess > 0 {
			def.Shape.NProcess = block.Parallel.NProcess
		}
		if block.Parallel.Threads > 0 {
			def.Shape.Threads = block.Parallel.Threads
		}
		if block.Parallel.Nodes > 0 {
			def.Shape.Nodes = block.Parallel.Nodes
		}
	}

	return def, nil
}

// translateTag converts a tag block; an omitted format defaults to the
// generic "dat" extension.
func translateTag(block *tagBlock) config.TagDecl {
	decl := config.TagDecl{Tag: block.Tag, Format: block.Format}
	if decl.Format == "" {
		decl.Format = "dat"
	}
	return decl
}
