package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadBattery parses every .hcl file under paths and merges their control
// and remap blocks, in file order, into one battery. Paths that do not exist
// are skipped; if no file defines anything the result is empty.
func (l *Loader) LoadBattery(ctx context.Context, paths ...string) (*config.Battery, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL battery loader started.", "path_count", len(paths))

	files, err := fsutil.Expand(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	battery := &config.Battery{Group: config.DefaultGroup}
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root batteryRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if root.Group != nil {
			battery.Group = *root.Group
		}
		for _, cb := range root.Controls {
			c, err := translateControl(cb)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			battery.Controls = append(battery.Controls, c)
		}
		for _, rb := range root.Remaps {
			r, err := translateRemap(rb)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			battery.Remaps = append(battery.Remaps, r)
		}
	}

	if err := battery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid battery: %w", err)
	}
	logger.Debug("HCL battery loading complete.", "controls", len(battery.Controls), "remaps", len(battery.Remaps))
	return battery, nil
}

// LoadScene parses a single scene file.
func (l *Loader) LoadScene(ctx context.Context, path string) (*config.Scene, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL scene loader started.", "path", path)

	hclFile, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	var root sceneRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	scene := &config.Scene{Current: stringOr(root.Current, "")}
	seen := make(map[string]struct{}, len(root.Sets))
	for _, sb := range root.Sets {
		if _, dup := seen[sb.Name]; dup {
			return nil, fmt.Errorf("in %s: animation set %q is defined twice", path, sb.Name)
		}
		seen[sb.Name] = struct{}{}

		set, err := translateSet(sb)
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", path, err)
		}
		scene.Sets = append(scene.Sets, set)
	}
	if scene.Current == "" && len(scene.Sets) > 0 {
		scene.Current = scene.Sets[0].Name
	}

	logger.Debug("HCL scene loading complete.", "sets", len(scene.Sets), "current", scene.Current)
	return scene, nil
}
