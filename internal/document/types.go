package document

import (
	"fmt"

	"github.com/vk/morelight/internal/elemid"
	"github.com/zclconf/go-cty/cty"
)

// ID aliases elemid.ID for brevity inside document APIs.
type ID = elemid.ID

// Kind is the closed set of animation set variants the document knows about.
type Kind int

const (
	// KindOther is any animation set that is not a light (cameras, models, ...).
	KindOther Kind = iota
	// KindLight is an animation set driving a light element.
	KindLight
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindLight:
		return "light"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps the scene-file spelling of a kind to its value.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "light":
		return KindLight, nil
	case "other", "":
		return KindOther, nil
	default:
		return KindOther, fmt.Errorf("unknown animation set kind %q", s)
	}
}

// ChannelMode is where a channel currently delivers its value.
type ChannelMode int

const (
	// ModeDirect feeds the target attribute directly.
	ModeDirect ChannelMode = iota
	// ModeDetached feeds nothing. It only exists between the two halves of
	// a retarget.
	ModeDetached
	// ModeViaElement feeds an input of an intermediate element, usually an
	// operator, which in turn feeds the attribute.
	ModeViaElement
)

// String implements fmt.Stringer.
func (m ChannelMode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeDetached:
		return "detached"
	case ModeViaElement:
		return "via_element"
	default:
		return fmt.Sprintf("ChannelMode(%d)", int(m))
	}
}

// ParseChannelMode maps the scene-file spelling of a mode to its value.
func ParseChannelMode(s string) (ChannelMode, error) {
	switch s {
	case "direct", "":
		return ModeDirect, nil
	case "detached":
		return ModeDetached, nil
	case "via_element":
		return ModeViaElement, nil
	default:
		return ModeDirect, fmt.Errorf("unknown channel mode %q", s)
	}
}

// AnimationSet is the object being augmented. Its light element is only
// reachable through AsLight.
type AnimationSet struct {
	ID        ID
	Name      string
	Kind      Kind
	RootGroup ID

	// LightElement is the element the set animates when Kind is KindLight.
	LightElement ID
}

// LightSet is the light variant of an animation set. Control and remap
// operations are only defined for this type.
type LightSet struct {
	*AnimationSet
	Light ID
}

// AsLight returns the light variant of the set, or false if the set is not
// a light.
func (a *AnimationSet) AsLight() (LightSet, bool) {
	if a == nil || a.Kind != KindLight || a.LightElement.IsZero() {
		return LightSet{}, false
	}
	return LightSet{AnimationSet: a, Light: a.LightElement}, true
}

// Element is a plain attribute holder, e.g. the light a set animates.
type Element struct {
	ID         ID
	Name       string
	Type       string
	Attributes map[string]cty.Value
}

// ControlGroup organizes controls of an animation set.
type ControlGroup struct {
	ID       ID
	Name     string
	Set      ID
	Parent   ID
	Controls []ID
	Children []ID
}

// Control is a user-facing animatable parameter.
type Control struct {
	ID      ID
	Name    string
	Set     ID
	Value   float64
	Default float64
	Channel ID
}

// Channel delivers a control's value to its destination.
type Channel struct {
	ID          ID
	Name        string
	Mode        ChannelMode
	ToElement   ID
	ToAttribute string
}

// Operator is a pure computation node.
type Operator struct {
	ID     ID
	Name   string
	Set    ID
	Expr   string
	Inputs map[string]cty.Value
}

// Connection wires an operator output to an element attribute.
type Connection struct {
	ID        ID
	Name      string
	Set       ID
	From      ID
	Output    string
	To        ID
	Attribute string
}

// NewControl describes a control to create together with its channel.
type NewControl struct {
	Name      string
	Value     float64
	Default   float64
	Element   ID
	Attribute string
}

// NewOperator describes an operator to create.
type NewOperator struct {
	Name   string
	Expr   string
	Inputs map[string]cty.Value
}

// NewConnection describes a connection to create.
type NewConnection struct {
	Name      string
	From      ID
	Output    string
	To        ID
	Attribute string
}

// Stats counts the elements owned by one animation set.
type Stats struct {
	Controls    int
	Operators   int
	Connections int
}
