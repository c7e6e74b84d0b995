// Package document defines the scene-graph document that morelight mutates.
//
// # Why Document Exists
//
// The document is owned by the host application and shared by everything
// running inside it. morelight never creates or destroys animation sets; it
// only attaches controls, operators and connections to one of them and
// retargets channels. The Document interface captures exactly the host
// primitives this needs, so the rest of the code can be exercised against
// the in-memory implementation in internal/inmemorydoc.
//
// # Channel Modes
//
// A channel is in exactly one mode at any observable instant:
//
//	Direct ──DetachChannel──▶ Detached ──RetargetChannel──▶ ViaElement
//	   ▲                         │
//	   └──────RestoreChannel─────┘
//
// Each transition is a single mutation. Callers that must not apply two
// transitions in the same pass (see internal/scheduler) issue them as
// separate steps.
package document

import (
	"context"
	"errors"

	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrNotFound is returned when a referenced element does not exist.
	ErrNotFound = errors.New("element not found")
	// ErrInvalidTransition is returned when a channel is asked to leave a
	// mode it is not in.
	ErrInvalidTransition = errors.New("invalid channel transition")
	// ErrUnknownAttribute is returned when an attribute is not defined on
	// the target element.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrAlreadyGrouped is returned when a control already belongs to a group.
	ErrAlreadyGrouped = errors.New("control already belongs to a group")
)

// Document is the host's shared, mutable scene graph.
//
// # Thread-Safety
//
// Implementations MUST be safe for concurrent reads. Mutations of one run
// are issued from a single goroutine (the host loop), but observers and
// health reporting may read at any time.
type Document interface {
	// CurrentSet returns the animation set currently selected in the host
	// session.
	CurrentSet(ctx context.Context) (*AnimationSet, error)

	// AnimationSet looks up a set by ID.
	AnimationSet(ctx context.Context, id ID) (*AnimationSet, bool)

	// Element looks up a plain element (e.g. a light) by ID.
	Element(ctx context.Context, id ID) (*Element, bool)

	// Attribute reads one typed attribute of an element or animation set.
	Attribute(ctx context.Context, owner ID, name string) (cty.Value, bool)

	// SetAttribute creates or overwrites a typed attribute of an element or
	// animation set.
	SetAttribute(ctx context.Context, owner ID, name string, value cty.Value) error

	// FindOrAddControlGroup returns the child group called name under
	// parent, creating it when missing.
	FindOrAddControlGroup(ctx context.Context, set ID, parent ID, name string) (*ControlGroup, error)

	// CreateControl creates a control and its channel. The channel starts in
	// ModeDirect, bound to spec.Attribute on spec.Element.
	CreateControl(ctx context.Context, set ID, spec NewControl) (*Control, error)

	// FindControl looks up a control of the set by name.
	FindControl(ctx context.Context, set ID, name string) (*Control, bool)

	// AddControlToGroup registers a control in a group.
	AddControlToGroup(ctx context.Context, group ID, control ID) error

	// Channel looks up a channel by ID.
	Channel(ctx context.Context, id ID) (*Channel, bool)

	// DetachChannel moves a channel from ModeDirect to ModeDetached.
	DetachChannel(ctx context.Context, id ID) error

	// RetargetChannel moves a channel from ModeDetached to ModeViaElement,
	// feeding attribute on element.
	RetargetChannel(ctx context.Context, id ID, element ID, attribute string) error

	// RestoreChannel moves a channel from ModeDetached back to ModeDirect,
	// feeding attribute on element.
	RestoreChannel(ctx context.Context, id ID, element ID, attribute string) error

	// CreateOperator creates an operator owned by the set.
	CreateOperator(ctx context.Context, set ID, spec NewOperator) (*Operator, error)

	// Operator looks up an operator by ID.
	Operator(ctx context.Context, id ID) (*Operator, bool)

	// RemoveOperator deletes an operator that nothing is connected to.
	RemoveOperator(ctx context.Context, id ID) error

	// CreateConnection wires an operator output to an element attribute.
	CreateConnection(ctx context.Context, set ID, spec NewConnection) (*Connection, error)

	// RemoveConnection deletes a connection.
	RemoveConnection(ctx context.Context, id ID) error

	// Stats counts the controls, operators and connections owned by a set.
	Stats(ctx context.Context, set ID) Stats

	// Subscribe registers an observer for applied mutations.
	Subscribe(o Observer)
}
