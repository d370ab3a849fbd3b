// Package testutil provides a standardized harness for integration tests:
// it materializes HCL fixtures into a temporary directory, boots the
// application against them, and captures logs and errors for assertion.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stageflow/internal/app"
	"github.com/vk/stageflow/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	// Dir is the temporary root the fixtures were written into; stage
	// outputs land under it when the pipeline uses relative paths.
	Dir string
}

// RunIntegrationTest writes the given fixture files (keyed by relative
// path, e.g. "pipeline/main.hcl" or "stages/defs.hcl"), boots the app
// against them, and executes the pipeline. Startup panics are captured as
// errors so malformed-config tests can assert on them.
func RunIntegrationTest(t *testing.T, files map[string]string, extraArgs ...string) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, extraArgs...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-supplied
// context, for cancellation tests.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, extraArgs ...string) *HarnessResult {
	t.Helper()

	result, testApp, appConfig, logBuffer := setupApp(t, files, extraArgs...)
	if result != nil {
		return result
	}

	runErr := testApp.Run(ctx, appConfig)

	if os.Getenv("STAGEFLOW_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Dir:       filepath.Dir(appConfig.PipelinePath),
	}
}

// RunLoadTest boots the app against the fixtures without executing the
// pipeline, for tests focused on parsing and validation.
func RunLoadTest(t *testing.T, files map[string]string) *HarnessResult {
	t.Helper()

	result, testApp, appConfig, logBuffer := setupApp(t, files)
	if result != nil {
		return result
	}

	if os.Getenv("STAGEFLOW_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		App:       testApp,
		Dir:       filepath.Dir(appConfig.PipelinePath),
	}
}

func setupApp(t *testing.T, files map[string]string, extraArgs ...string) (*HarnessResult, *app.App, *app.Config, *SafeBuffer) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", ".tmp-integration-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	pipelineDir := filepath.Join(tmpDir, "pipeline")
	stagesDir := filepath.Join(tmpDir, "stages")
	require.NoError(t, os.Mkdir(pipelineDir, 0755))
	require.NoError(t, os.Mkdir(stagesDir, 0755))

	// Fixtures may reference the temporary root via the @DIR@ placeholder,
	// so manifests can carry absolute paths without knowing the directory
	// up front.
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		content = strings.ReplaceAll(content, "@DIR@", tmpDir)
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	appConfig := &app.Config{
		PipelinePath: pipelineDir,
		StagesPath:   stagesDir,
		LogLevel:     "debug",
		LogFormat:    "text",
	}
	applyArgs(appConfig, extraArgs)

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				if os.Getenv("STAGEFLOW_TEST_LOGS") == "true" {
					t.Logf("--- HARNESS RECOVERED PANIC ---\n%q", fmt.Sprintf("%v", r))
				}
				panicErr = r
			}
		}()
		testApp = app.New(logBuffer, appConfig, hcl.NewLoader())
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			Dir:       tmpDir,
		}, nil, nil, nil
	}

	return nil, testApp, appConfig, logBuffer
}

// applyArgs maps a small arg vocabulary onto the app config so tests can
// flip run modes without a second config type.
func applyArgs(cfg *app.Config, args []string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--resume":
			cfg.Resume = true
		case "--launcher":
			i++
			cfg.Launcher = args[i]
		case "--set":
			i++
			cfg.Overrides = append(cfg.Overrides, args[i])
		}
	}
}
