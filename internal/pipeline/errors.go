package pipeline

import (
	"fmt"
	"strings"
)

// Construction errors are detected before any job launches; all of them are
// fatal and abort the whole run with no partial execution.

// UnresolvedInputError reports an input tag that matches neither an overall
// pipeline input nor any sibling stage's output.
type UnresolvedInputError struct {
	Stage string
	Tag   string
}

func (e *UnresolvedInputError) Error() string {
	return fmt.Sprintf("stage '%s': input tag '%s' is not an overall pipeline input and no stage produces it", e.Stage, e.Tag)
}

// DuplicateOutputError reports a tag claimed by more than one producer
// after alias resolution. An overall pipeline input colliding with a stage
// output is the same defect: a tag must have exactly one source.
type DuplicateOutputError struct {
	Tag       string
	Producers []string
}

func (e *DuplicateOutputError) Error() string {
	return fmt.Sprintf("output tag '%s' has multiple producers: %s", e.Tag, strings.Join(e.Producers, ", "))
}

// CycleError reports a dependency cycle in the induced stage graph.
type CycleError struct {
	Err error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline graph is cyclic: %v", e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
