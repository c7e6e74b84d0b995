package config

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// DefaultGroup is the control group the battery registers its controls in.
const DefaultGroup = "More-Light"

// Model is the unified, format-agnostic representation of everything a run
// reads from disk.
type Model struct {
	Battery *Battery
	Scene   *Scene
}

// Battery is the fixed set of controls and remaps applied to a light.
type Battery struct {
	Group    string
	Controls []*Control
	Remaps   []*Remap
}

// Control is the format-agnostic representation of a `control` block.
type Control struct {
	Label     string
	Attribute string
	Initial   float64
	Default   float64
	Remap     bool
}

// Remap is the format-agnostic representation of a `remap` block. It
// targets a control that already exists on the light.
type Remap struct {
	Control   string
	Attribute string
	Lo        float64
	Hi        float64
}

// Validate checks the battery for structural mistakes.
func (b *Battery) Validate() error {
	if b == nil {
		return errors.New("battery is nil")
	}
	if b.Group == "" {
		return errors.New("battery group name cannot be empty")
	}
	var errs []error
	seen := make(map[string]struct{})
	for _, c := range b.Controls {
		if c.Attribute == "" {
			errs = append(errs, fmt.Errorf("control %q: attribute cannot be empty", c.Label))
			continue
		}
		if _, dup := seen[c.Attribute]; dup {
			errs = append(errs, fmt.Errorf("control %q: attribute %q is bound twice", c.Label, c.Attribute))
		}
		seen[c.Attribute] = struct{}{}
	}
	for _, r := range b.Remaps {
		if r.Control == "" {
			errs = append(errs, errors.New("remap: control cannot be empty"))
		}
	}
	return errors.Join(errs...)
}

// DefaultBattery returns the battery applied when no battery file is given:
// the light settings the host hides by default, plus the two stock light
// controls that benefit from a rescaled range.
func DefaultBattery() *Battery {
	return &Battery{
		Group: DefaultGroup,
		Controls: []*Control{
			{Label: "Ambient Occlusion", Attribute: "ambientOcclusion", Initial: 1, Default: 1},
			{Label: "Cast Shadows", Attribute: "castsShadows", Initial: 1, Default: 1},
			{Label: "Cast Volumetrics", Attribute: "volumetric", Initial: 0, Default: 0},
			{Label: "Show Light Frustum", Attribute: "drawShadowFrustum", Initial: 0, Default: 0},
			{Label: "Set as Uberlight", Attribute: "uberlight", Initial: 0, Default: 0},
			{Label: "Roundness", Attribute: "roundness", Initial: 0.8, Default: 0.8, Remap: true},
		},
		Remaps: []*Remap{
			{Control: "shadowAtten", Attribute: "shadowAtten", Lo: 0, Hi: 1},
			{Control: "noiseStrength", Attribute: "noiseStrength", Lo: 0, Hi: 1},
		},
	}
}

// Scene is a snapshot of the document: the animation sets and everything
// attached to them.
type Scene struct {
	Current string
	Sets    []*SceneSet
}

// Set returns the set with the given name.
func (s *Scene) Set(name string) (*SceneSet, bool) {
	for _, set := range s.Sets {
		if set.Name == name {
			return set, true
		}
	}
	return nil, false
}

// SceneSet is the format-agnostic representation of an `animation_set` block.
type SceneSet struct {
	Name        string
	Kind        string
	Attributes  map[string]cty.Value
	Light       *SceneElement
	Controls    []*SceneControl
	Operators   []*SceneOperator
	Connections []*SceneConnection
}

// SceneElement is the format-agnostic representation of a `light` block.
type SceneElement struct {
	Name       string
	Attributes map[string]cty.Value
}

// SceneControl is the format-agnostic representation of a `control` block
// inside an animation set. Channel is an element reference such as
// `light.shadowAtten` or `roundness_rescale.value`.
type SceneControl struct {
	Name    string
	Group   string
	Value   float64
	Default float64
	Mode    string
	Channel string
}

// SceneOperator is the format-agnostic representation of an `operator` block.
type SceneOperator struct {
	Name   string
	Expr   string
	Inputs map[string]cty.Value
}

// SceneConnection is the format-agnostic representation of a `connection`
// block. From and To are element references.
type SceneConnection struct {
	Name string
	From string
	To   string
}
