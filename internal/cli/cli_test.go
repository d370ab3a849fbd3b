package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PositionalPath(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"pipeline.hcl"}, out)
	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, "pipeline.hcl", cfg.PipelinePath)
	assert.Equal(t, "stages", cfg.StagesPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Resume)
}

func TestParse_Flags(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{
		"--pipeline", "run.hcl",
		"--stages-path", "defs",
		"--launcher", "static",
		"--resume",
		"--log-level", "debug",
		"--log-format", "json",
		"--set", "chunk_size=200",
		"--set", "count_words.top_n=10",
	}, out)
	require.NoError(t, err)
	assert.False(t, shouldExit)

	assert.Equal(t, "run.hcl", cfg.PipelinePath)
	assert.Equal(t, "defs", cfg.StagesPath)
	assert.Equal(t, "static", cfg.Launcher)
	assert.True(t, cfg.Resume)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"chunk_size=200", "count_words.top_n=10"}, cfg.Overrides)
}

func TestParse_Shorthand(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, _, err := Parse([]string{"-p", "run.hcl"}, out)
	require.NoError(t, err)
	assert.Equal(t, "run.hcl", cfg.PipelinePath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"bad log format", []string{"--log-format", "xml", "p.hcl"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "verbose", "p.hcl"}, "invalid log-level"},
		{"bad launcher", []string{"--launcher", "slurm", "p.hcl"}, "invalid launcher"},
		{"unknown flag", []string{"--bogus", "p.hcl"}, "flag provided but not defined"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cfg, shouldExit, err := Parse(tc.args, out)
			require.Error(t, err)
			assert.False(t, shouldExit)
			assert.Nil(t, cfg)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
