package core_execution

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stageflow/internal/testutil"
)

// stubScript touches every --tag=path argument, standing in for a real
// stage entry point.
const stubScript = `for arg in "$@"; do
  case "$arg" in
    --*=*) touch "${arg#--*=}" ;;
  esac
done
`

func chainFixture() map[string]string {
	return map[string]string{
		"stub.sh":    stubScript,
		"corpus.txt": "some words here\n",
		"pipeline/main.hcl": `
pipeline {
  output_dir = "@DIR@/out"
  log_dir    = "@DIR@/logs"
}

launcher "mini" {
  interval = 0.05
}

input "corpus" {
  path = "@DIR@/corpus.txt"
}

stage "tokenize" {}

stage "count_words" {
  options {
    top_n = 50
  }
}
`,
		"stages/defs.hcl": `
stage_def "tokenize" {
  interpreter = "sh @DIR@/stub.sh"
  module      = "textflow.tokenize"

  input "corpus" {
    format = "txt"
  }

  output "tokens" {}
}

stage_def "count_words" {
  interpreter = "sh @DIR@/stub.sh"
  module      = "textflow.count"

  input "tokens" {}

  output "word_counts" {}

  option "top_n" {
    type = number
  }
}
`,
	}
}

func TestPipeline_RunsChainToCompletion(t *testing.T) {
	result := testutil.RunIntegrationTest(t, chainFixture())
	require.NoError(t, result.Err)

	assert.FileExists(t, filepath.Join(result.Dir, "out", "tokens.dat"))
	assert.FileExists(t, filepath.Join(result.Dir, "out", "word_counts.dat"))
	assert.FileExists(t, filepath.Join(result.Dir, "logs", "tokenize.out"))
	assert.FileExists(t, filepath.Join(result.Dir, "logs", "count_words.out"))

	assert.Contains(t, result.LogOutput, "Executing job.")
	assert.Contains(t, result.LogOutput, "Job completed successfully.")
	assert.Contains(t, result.LogOutput, "Pipeline completed successfully.")
}

func TestPipeline_OptionOverrideReachesCommand(t *testing.T) {
	result := testutil.RunIntegrationTest(t, chainFixture(), "--set", "count_words.top_n=7")
	require.NoError(t, result.Err)

	// The resolved option rides on the launched command line, which the
	// runner logs as the launch detail.
	assert.Contains(t, result.LogOutput, "--top_n=7")
}
