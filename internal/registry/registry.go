// Package registry holds the closed set of stage definitions known to a
// single run. Stages are discovered at pipeline-build time through this
// explicit registry, never through runtime introspection.
package registry

import (
	"github.com/vk/stageflow/internal/config"
)

// Registry maps stage definition names to their metadata and entry points
// for a single application instance.
type Registry struct {
	defs map[string]*config.StageDef
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		defs: make(map[string]*config.StageDef),
	}
}

// PopulateFromModel copies the loaded stage definitions from the config
// model into the registry for easy access during pipeline construction.
func (r *Registry) PopulateFromModel(model *config.Model) {
	for name, def := range model.Defs {
		r.defs[name] = def
	}
}

// Register adds a single stage definition, replacing any previous
// definition with the same name. Primarily used by tests that build
// registries without going through the loader.
func (r *Registry) Register(def *config.StageDef) {
	r.defs[def.Name] = def
}

// Lookup returns the definition registered under the given name.
func (r *Registry) Lookup(name string) (*config.StageDef, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Names returns the registered definition names in unspecified order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	return names
}
