package hcl_features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stageflow/internal/testutil"
)

func TestLoading_BlocksMayShareFiles(t *testing.T) {
	// Pipeline declarations and stage manifests can live in one file; the
	// loader is agnostic to how blocks are split across files.
	result := testutil.RunLoadTest(t, map[string]string{
		"pipeline/everything.hcl": `
pipeline {
  output_dir = "@DIR@/out"
}

site "local" {
  cores_per_node = 4
}

input "corpus" {
  path = "@DIR@/corpus.txt"
}

stage_def "tokenize" {
  module = "textflow.tokenize"

  input "corpus" {
    format = "txt"
  }

  output "tokens" {}
}

stage "tokenize" {}
`,
	})
	require.NoError(t, result.Err)
	require.NotNil(t, result.App)

	model := result.App.Model()
	assert.Len(t, model.Stages, 1)
	assert.Contains(t, model.Inputs, "corpus")
	assert.Equal(t, 4, model.Site.CoresPerNode)

	def, ok := result.App.Registry().Lookup("tokenize")
	require.True(t, ok)
	assert.Equal(t, "python3", def.Interpreter)
}

func TestLoading_SplitAcrossDirectories(t *testing.T) {
	result := testutil.RunLoadTest(t, map[string]string{
		"pipeline/main.hcl": `
stage "tokenize" {}
`,
		"stages/tokenize.hcl": `
stage_def "tokenize" {
  module = "textflow.tokenize"

  output "tokens" {}
}
`,
	})
	require.NoError(t, result.Err)

	assert.Equal(t, 1, result.App.Registry().Len())
	assert.Len(t, result.App.Model().Stages, 1)
}

func TestLoading_DuplicateSiteBlockFails(t *testing.T) {
	result := testutil.RunLoadTest(t, map[string]string{
		"pipeline/a.hcl": `
site "local" {}
`,
		"pipeline/b.hcl": `
site "cluster" {}
`,
	})
	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "duplicate 'site' block")
}
