package config

import (
	"context"
	"io"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// LoadBattery reads battery definitions from the given paths (files or
	// directories) and merges them into one Battery.
	LoadBattery(ctx context.Context, paths ...string) (*Battery, error)

	// LoadScene reads a scene snapshot from a single file.
	LoadScene(ctx context.Context, path string) (*Scene, error)
}

// Writer is the interface for a format-specific scene exporter.
type Writer interface {
	WriteScene(ctx context.Context, w io.Writer, scene *Scene) error
}
