package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/morelight/internal/app"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name       string
		args       []string
		wantConfig *app.Config
		wantExit   bool
		wantCode   int
		wantErr    string
	}{
		{
			name: "defaults",
			args: []string{"scene.hcl"},
			wantConfig: &app.Config{
				ScenePath: "scene.hcl",
				LogFormat: "text",
				LogLevel:  "info",
			},
		},
		{
			name: "all flags",
			args: []string{
				"--target", "light_1", "--battery", "battery.hcl", "--out", "out.hcl",
				"--console-url", "http://localhost:3000", "--healthcheck-port", "8080",
				"--log-format", "JSON", "--log-level", "Debug", "scene.hcl",
			},
			wantConfig: &app.Config{
				ScenePath:       "scene.hcl",
				Target:          "light_1",
				BatteryPath:     "battery.hcl",
				OutPath:         "out.hcl",
				ConsoleURL:      "http://localhost:3000",
				HealthcheckPort: 8080,
				LogFormat:       "json",
				LogLevel:        "debug",
			},
		},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "no scene prints usage", args: []string{}, wantExit: true},
		{name: "unknown flag", args: []string{"--nope", "scene.hcl"}, wantCode: 2, wantErr: "flag provided but not defined"},
		{name: "two scenes", args: []string{"a.hcl", "b.hcl"}, wantCode: 2, wantErr: "expected one scene path"},
		{name: "bad format", args: []string{"--log-format", "xml", "scene.hcl"}, wantCode: 2, wantErr: "invalid log-format"},
		{name: "bad level", args: []string{"--log-level", "trace", "scene.hcl"}, wantCode: 2, wantErr: "invalid log-level"},
		{name: "out overwrites scene", args: []string{"--out", "scene.hcl", "scene.hcl"}, wantCode: 2, wantErr: "must not overwrite"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			out := &bytes.Buffer{}

			// --- Act ---
			cfg, shouldExit, err := Parse(tc.args, out)

			// --- Assert ---
			if tc.wantErr != "" {
				require.Error(t, err)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, shouldExit)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tc.wantConfig, cfg)
		})
	}
}
