package testutil

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultLightAttributes are the light attributes the built-in battery binds.
func DefaultLightAttributes() map[string]float64 {
	return map[string]float64{
		"ambientOcclusion":  1,
		"castsShadows":      1,
		"volumetric":        0,
		"drawShadowFrustum": 0,
		"uberlight":         0,
		"roundness":         0.8,
		"shadowAtten":       0.5,
		"noiseStrength":     0,
	}
}

// LightSceneHCL renders a scene with a camera set and one light set named
// set. Each name in controls becomes a control bound directly to the light
// attribute of the same name. The light set is the current one.
func LightSceneHCL(set string, attrs map[string]float64, controls ...string) string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "current = %q\n\n", set)
	b.WriteString("animation_set \"camera_1\" {\n  kind = \"other\"\n}\n\n")
	fmt.Fprintf(&b, "animation_set %q {\n  kind = \"light\"\n\n  light {\n    attributes = {\n", set)
	for _, name := range names {
		fmt.Fprintf(&b, "      %s = %v\n", name, attrs[name])
	}
	b.WriteString("    }\n  }\n")
	for _, c := range controls {
		fmt.Fprintf(&b, "\n  control %q {\n    value   = %v\n    channel = \"light.%s\"\n  }\n", c, attrs[c], c)
	}
	b.WriteString("}\n")
	return b.String()
}
