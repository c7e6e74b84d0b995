package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/morelight/internal/app"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/hcl"
	"github.com/vk/morelight/internal/orchestrator"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer = app.SafeBuffer

// HarnessOptions configures one integration run.
type HarnessOptions struct {
	// Target selects the animation set. Empty keeps the scene's current set.
	Target string
	// Battery is the HCL source of a battery file. Empty runs the built-in
	// battery.
	Battery string
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Report    *orchestrator.Report
	// Scene is the exported scene, reloaded from disk. It is nil when the
	// run failed before the export.
	Scene   *config.Scene
	OutPath string
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, sceneHCL string, opts HarnessOptions) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, sceneHCL, opts)
}

// RunIntegrationTestWithContext writes the scene (and battery) to a temporary
// directory, runs the full app against it and reloads the exported scene.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, sceneHCL string, opts HarnessOptions) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	scenePath := filepath.Join(tmpDir, "scene.hcl")
	require.NoError(t, os.WriteFile(scenePath, []byte(sceneHCL), 0644))

	cfg := &app.Config{
		ScenePath: scenePath,
		Target:    opts.Target,
		OutPath:   filepath.Join(tmpDir, "out.hcl"),
		LogLevel:  "debug",
		LogFormat: "text",
	}
	if opts.Battery != "" {
		cfg.BatteryPath = filepath.Join(tmpDir, "battery.hcl")
		require.NoError(t, os.WriteFile(cfg.BatteryPath, []byte(opts.Battery), 0644))
	}

	logBuffer := &SafeBuffer{}
	loader := hcl.NewLoader()

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, cfg, loader, hcl.NewWriter())
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("MORELIGHT_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	result := &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Report:    testApp.Report(),
		OutPath:   cfg.OutPath,
	}
	if runErr == nil {
		scene, err := loader.LoadScene(context.Background(), cfg.OutPath)
		require.NoError(t, err, "exported scene must load again")
		result.Scene = scene
	}
	return result
}
