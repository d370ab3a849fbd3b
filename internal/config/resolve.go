package config

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// MissingConfigError reports a required option (no declared default) that
// was supplied by no layer of the overlay.
type MissingConfigError struct {
	Stage  string
	Option string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("stage '%s': required option '%s' was not supplied and has no default", e.Stage, e.Option)
}

// ResolveOptions resolves a stage's full option set against its declared
// schema. The overlay is consulted in strict precedence order:
// command line > per-stage section > global section > declared default.
// Values are converted to the declared option type; a value no layer can
// supply yields a MissingConfigError. The function is pure: it is called
// once per stage at graph-build time and never re-queried during execution.
func ResolveOptions(stageName string, decls []OptionDecl, cli, section, global map[string]cty.Value) (map[string]cty.Value, error) {
	resolved := make(map[string]cty.Value, len(decls))

	for _, decl := range decls {
		val, ok := lookup(decl.Name, cli, section, global)
		if !ok {
			if decl.Default == nil {
				return nil, &MissingConfigError{Stage: stageName, Option: decl.Name}
			}
			val = *decl.Default
		}

		converted, err := convert.Convert(val, decl.Type)
		if err != nil {
			return nil, fmt.Errorf("stage '%s', option '%s': value is not a valid %s: %w",
				stageName, decl.Name, decl.Type.FriendlyName(), err)
		}
		resolved[decl.Name] = converted
	}

	return resolved, nil
}

// lookup walks the overlay layers in precedence order.
func lookup(name string, layers ...map[string]cty.Value) (cty.Value, bool) {
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if val, ok := layer[name]; ok {
			return val, true
		}
	}
	return cty.NilVal, false
}

// ParseOverrides turns repeated `--set key=value` / `--set stage.key=value`
// pairs into per-stage CLI option layers. An unscoped key lands in the
// layer of every stage; a scoped key only in the named stage's layer.
// Values enter as strings and are coerced to the declared option type
// during resolution.
func ParseOverrides(pairs []string) (global map[string]cty.Value, perStage map[string]map[string]cty.Value, err error) {
	global = make(map[string]cty.Value)
	perStage = make(map[string]map[string]cty.Value)

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, nil, fmt.Errorf("invalid override %q: expected key=value", pair)
		}

		if stage, opt, scoped := strings.Cut(key, "."); scoped {
			if stage == "" || opt == "" {
				return nil, nil, fmt.Errorf("invalid override %q: expected stage.key=value", pair)
			}
			if perStage[stage] == nil {
				perStage[stage] = make(map[string]cty.Value)
			}
			perStage[stage][opt] = cty.StringVal(value)
			continue
		}

		global[key] = cty.StringVal(value)
	}

	return global, perStage, nil
}
