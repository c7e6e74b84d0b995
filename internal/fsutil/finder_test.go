package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	for _, name := range []string{"b/remaps.hcl", "b/controls.hcl", "b/nested/extra.hcl", "b/README.md", "scene.hcl"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("#"), 0644))
	}

	// --- Act ---
	files, err := Expand([]string{
		filepath.Join(dir, "scene.hcl"),
		filepath.Join(dir, "b"),
		filepath.Join(dir, "b", "controls.hcl"),
		filepath.Join(dir, "missing"),
	}, ".hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "scene.hcl"),
		filepath.Join(dir, "b", "controls.hcl"),
		filepath.Join(dir, "b", "nested", "extra.hcl"),
		filepath.Join(dir, "b", "remaps.hcl"),
	}, files)
}

func TestFindFilesByExtension_PanicsOnEmptyExtension(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}
