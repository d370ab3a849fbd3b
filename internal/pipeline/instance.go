package pipeline

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stageflow/internal/config"
	"github.com/vk/stageflow/internal/site"
)

// BoundTag is a connection point resolved to a concrete file: the
// (aliased) tag name, the file format, and the physical path.
type BoundTag struct {
	Tag    string
	Format string
	Path   string
}

// StageInstance is a stage definition bound to concrete file paths for
// every tag and a fully resolved option set. Instances are created when
// the pipeline is built and consumed by launchers to build executable
// commands; they identify what must run and with which data, not how.
type StageInstance struct {
	Def     *config.StageDef
	Name    string
	Shape   config.Shape
	Inputs  []BoundTag
	Outputs []BoundTag
	Options map[string]cty.Value
}

// OutputPaths returns the declared output paths in declaration order.
func (si *StageInstance) OutputPaths() []string {
	paths := make([]string, 0, len(si.Outputs))
	for _, out := range si.Outputs {
		paths = append(paths, out.Path)
	}
	return paths
}

// CoreCommand reconstructs the undecorated invocation of the stage's entry
// point: interpreter, module, stage definition name, then one --tag=path
// argument per connection point and one --option=value per resolved
// option, all in declaration order so the command is reproducible.
func (si *StageInstance) CoreCommand() string {
	parts := []string{si.Def.Interpreter, "-m", si.Def.Module, si.Def.Name}

	for _, in := range si.Inputs {
		parts = append(parts, fmt.Sprintf("--%s=%s", in.Tag, in.Path))
	}
	for _, out := range si.Outputs {
		parts = append(parts, fmt.Sprintf("--%s=%s", out.Tag, out.Path))
	}
	for _, decl := range si.Def.Options {
		parts = append(parts, fmt.Sprintf("--%s=%s", decl.Name, formatOptionValue(si.Options[decl.Name])))
	}

	return strings.Join(parts, " ")
}

// Command returns the complete command line for the instance at the given
// site, including MPI, container, and thread-count decoration.
func (si *StageInstance) Command(s *site.Site) string {
	return s.Command(si.CoreCommand(), si.Shape)
}

// formatOptionValue renders a resolved option value as a command-line
// literal. Lists render comma-separated, matching what stage entry points
// parse back.
func formatOptionValue(val cty.Value) string {
	if val == cty.NilVal || val.IsNull() {
		return ""
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString()
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return fmt.Sprintf("%d", i)
		}
		return bf.Text('g', -1)
	case ty == cty.Bool:
		if val.True() {
			return "true"
		}
		return "false"
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		var parts []string
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			parts = append(parts, formatOptionValue(ev))
		}
		return strings.Join(parts, ",")
	default:
		return val.GoString()
	}
}
