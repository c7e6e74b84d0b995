package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/marker"
	"github.com/zclconf/go-cty/cty"
)

// SceneSet returns the named set of the exported scene.
func SceneSet(t *testing.T, result *HarnessResult, name string) *config.SceneSet {
	t.Helper()
	require.NotNil(t, result.Scene, "run did not export a scene: %v", result.Err)
	set, ok := result.Scene.Set(name)
	require.True(t, ok, "animation set %q not found in exported scene", name)
	return set
}

// SceneControl returns the named control of a set.
func SceneControl(t *testing.T, set *config.SceneSet, name string) *config.SceneControl {
	t.Helper()
	for _, c := range set.Controls {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "control not found", "control %q not found in set %q", name, set.Name)
	return nil
}

// AssertRemapped checks that control drives its lerp operator and the
// operator drives the light attribute, with the given bounds.
func AssertRemapped(t *testing.T, set *config.SceneSet, control string, lo, hi float64) {
	t.Helper()
	c := SceneControl(t, set, control)
	require.Equal(t, "via_element", c.Mode, "control %q should drive an operator", control)
	require.Equal(t, control+"_rescale.value", c.Channel)

	var op *config.SceneOperator
	for _, o := range set.Operators {
		if o.Name == control+"_rescale" {
			op = o
		}
	}
	require.NotNil(t, op, "operator for %q not found", control)
	require.True(t, op.Inputs["lo"].Equals(cty.NumberFloatVal(lo)).True(), "lo of %q", control)
	require.True(t, op.Inputs["hi"].Equals(cty.NumberFloatVal(hi)).True(), "hi of %q", control)

	found := false
	for _, conn := range set.Connections {
		if conn.Name == control+"_conn" {
			found = true
			require.Equal(t, control+"_rescale.result", conn.From)
		}
	}
	require.True(t, found, "connection for %q not found", control)
}

// AssertNoDetachedChannels checks that every control of the scene has a
// settled channel.
func AssertNoDetachedChannels(t *testing.T, scene *config.Scene) {
	t.Helper()
	for _, set := range scene.Sets {
		for _, c := range set.Controls {
			require.NotEqual(t, "detached", c.Mode, "control %q of %q left detached", c.Name, set.Name)
		}
	}
}

// AssertProcessed checks the processed mark of a set.
func AssertProcessed(t *testing.T, set *config.SceneSet, want bool) {
	t.Helper()
	v, ok := set.Attributes[marker.Attribute]
	if !want {
		require.True(t, !ok || v.False(), "set %q should not be marked", set.Name)
		return
	}
	require.True(t, ok, "set %q has no processed mark", set.Name)
	require.True(t, v.True(), "set %q should be marked", set.Name)
}

// CountLogLines counts the log lines containing msg.
func CountLogLines(result *HarnessResult, msg string) int {
	n := 0
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, msg) {
			n++
		}
	}
	return n
}
