package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/morelight/internal/testutil"
)

const batteryB = `
control "Roundness" {
  attribute = "roundness"
  initial   = 0.8
  default   = 0.8
  remap     = true
}

control "Volumetric" {
  attribute = "volumetric"
  initial   = 0
  default   = 0
}

remap "shadowAtten" {}
`

// Test for: a light gains its controls, one is remapped through a lerp
// operator, the explicit remap is applied and the light is marked.
func TestAugmentation_LightIsAugmented(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	attrs := map[string]float64{"roundness": 0.8, "volumetric": 0, "shadowAtten": 0.5}
	scene := testutil.LightSceneHCL("light_1", attrs, "shadowAtten")

	// --- Act ---
	result := testutil.RunIntegrationTest(t, scene, testutil.HarnessOptions{Battery: batteryB})

	// --- Assert ---
	require.NoError(t, result.Err)
	set := testutil.SceneSet(t, result, "light_1")
	testutil.AssertProcessed(t, set, true)
	testutil.AssertRemapped(t, set, "roundness", 0, 1)
	testutil.AssertRemapped(t, set, "shadowAtten", 0, 1)
	testutil.AssertNoDetachedChannels(t, result.Scene)

	volumetric := testutil.SceneControl(t, set, "volumetric")
	assert.Equal(t, "direct", volumetric.Mode)
	assert.Equal(t, "More-Light", volumetric.Group)

	roundness := testutil.SceneControl(t, set, "roundness")
	assert.Equal(t, 0.8, roundness.Value)
	assert.Equal(t, 0.8, roundness.Default)

	assert.Empty(t, result.Report.Failures())
	assert.Equal(t, 1, testutil.CountLogLines(result, "Light augmented."))
}

// Test for: the built-in battery on a fully featured light.
func TestAugmentation_DefaultBattery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	scene := testutil.LightSceneHCL("light_1", testutil.DefaultLightAttributes(), "shadowAtten", "noiseStrength")

	// --- Act ---
	result := testutil.RunIntegrationTest(t, scene, testutil.HarnessOptions{})

	// --- Assert ---
	require.NoError(t, result.Err)
	set := testutil.SceneSet(t, result, "light_1")
	testutil.AssertProcessed(t, set, true)
	testutil.AssertRemapped(t, set, "roundness", 0, 1)
	testutil.AssertRemapped(t, set, "shadowAtten", 0, 1)
	testutil.AssertRemapped(t, set, "noiseStrength", 0, 1)
	assert.Len(t, set.Controls, 8)
	assert.Len(t, set.Operators, 3)
	assert.Len(t, set.Connections, 3)
	assert.ElementsMatch(t, []string{"roundness", "shadowAtten", "noiseStrength"}, result.Report.Remapped())
}

// Test for: a target that is not a light is rejected before any mutation.
func TestAugmentation_NonLightTargetIsRejected(t *testing.T) {
	t.Parallel()

	scene := testutil.LightSceneHCL("light_1", testutil.DefaultLightAttributes())

	result := testutil.RunIntegrationTest(t, scene, testutil.HarnessOptions{Target: "camera_1"})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "is not a light")
	assert.Nil(t, result.Report)
	assert.Equal(t, 0, testutil.CountLogLines(result, "Remap batch opened"))
}

// Test for: re-running on an already processed light changes nothing and
// leaves a healthy change log alone.
func TestAugmentation_ProcessedLightIsSkipped(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	scene := testutil.LightSceneHCL("light_1", testutil.DefaultLightAttributes(), "shadowAtten", "noiseStrength")
	first := testutil.RunIntegrationTest(t, scene, testutil.HarnessOptions{})
	require.NoError(t, first.Err)
	exported := testutil.SceneSet(t, first, "light_1")

	secondScene, err := readFile(first.OutPath)
	require.NoError(t, err)

	// --- Act ---
	second := testutil.RunIntegrationTest(t, secondScene, testutil.HarnessOptions{})

	// --- Assert ---
	require.NoError(t, second.Err)
	assert.True(t, second.Report.AlreadyProcessed)
	assert.False(t, second.Report.LoggingRecovered)
	assert.Equal(t, 1, testutil.CountLogLines(second, "Light already processed"))
	assert.Zero(t, testutil.CountLogLines(second, "Change logging was left suspended"))
	set := testutil.SceneSet(t, second, "light_1")
	assert.Len(t, set.Controls, len(exported.Controls))
	assert.Len(t, set.Operators, len(exported.Operators))
	assert.Len(t, set.Connections, len(exported.Connections))
}
