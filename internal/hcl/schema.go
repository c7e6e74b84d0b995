// This file defines the HCL schema structs decoded with gohcl. Optional
// numeric and map attributes are kept as expressions so that an absent
// attribute can be told apart from an explicit zero.

package hcl

import "github.com/hashicorp/hcl/v2"

// batteryRoot decodes the top level of a battery file.
type batteryRoot struct {
	Group    *string         `hcl:"group,optional"`
	Controls []*controlBlock `hcl:"control,block"`
	Remaps   []*remapBlock   `hcl:"remap,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

// controlBlock is `control "Label" { ... }`.
type controlBlock struct {
	Label     string         `hcl:"label,label"`
	Attribute string         `hcl:"attribute"`
	Initial   hcl.Expression `hcl:"initial,optional"`
	Default   hcl.Expression `hcl:"default,optional"`
	Remap     *bool          `hcl:"remap,optional"`
}

// remapBlock is `remap "control" { ... }`.
type remapBlock struct {
	Control   string         `hcl:"control,label"`
	Attribute *string        `hcl:"attribute,optional"`
	Lo        hcl.Expression `hcl:"lo,optional"`
	Hi        hcl.Expression `hcl:"hi,optional"`
}

// sceneRoot decodes the top level of a scene file.
type sceneRoot struct {
	Current *string     `hcl:"current,optional"`
	Sets    []*setBlock `hcl:"animation_set,block"`
}

// setBlock is `animation_set "name" { ... }`.
type setBlock struct {
	Name        string             `hcl:"name,label"`
	Kind        *string            `hcl:"kind,optional"`
	Attributes  hcl.Expression     `hcl:"attributes,optional"`
	Light       *lightBlock        `hcl:"light,block"`
	Controls    []*bindingBlock    `hcl:"control,block"`
	Operators   []*operatorBlock   `hcl:"operator,block"`
	Connections []*connectionBlock `hcl:"connection,block"`
}

// lightBlock is the light element of a set.
type lightBlock struct {
	Attributes hcl.Expression `hcl:"attributes,optional"`
}

// bindingBlock is a control inside an animation set.
type bindingBlock struct {
	Name    string         `hcl:"name,label"`
	Group   *string        `hcl:"group,optional"`
	Value   hcl.Expression `hcl:"value,optional"`
	Default hcl.Expression `hcl:"default,optional"`
	Mode    *string        `hcl:"mode,optional"`
	Channel *string        `hcl:"channel,optional"`
}

// operatorBlock is `operator "name" { ... }`.
type operatorBlock struct {
	Name   string         `hcl:"name,label"`
	Expr   *string        `hcl:"expr,optional"`
	Inputs hcl.Expression `hcl:"inputs,optional"`
}

// connectionBlock is `connection "name" { ... }`.
type connectionBlock struct {
	Name string `hcl:"name,label"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}
