package binder

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/scheduler"
)

// Submitter receives the channel rewiring requests of successful remaps.
// *scheduler.Batch satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req scheduler.Request) error
}

// ControlSpec describes one control. The control is keyed by Attribute;
// Label is only shown to users.
type ControlSpec struct {
	Label     string
	Attribute string
	Initial   float64
	Default   float64
	Remap     bool
}

// RemapSpec describes one remap. An empty Attribute means the attribute
// named like the control.
type RemapSpec struct {
	Control   string
	Attribute string
	Lo, Hi    float64
}

// DefaultLo and DefaultHi are the bounds of remaps requested through
// ControlSpec.Remap.
const (
	DefaultLo = 0.0
	DefaultHi = 1.0
)

// Kind tells control outcomes from remap outcomes.
type Kind string

const (
	KindControl Kind = "control"
	KindRemap   Kind = "remap"
)

// Outcome is the result of one AddControl or CreateRemap call.
type Outcome struct {
	Kind       Kind
	Name       string
	Attribute  string
	Control    document.ID
	Operator   document.ID
	Connection document.ID
	Request    *scheduler.Request
	Err        error

	// Remap is the outcome of the remap an AddControl call requested.
	Remap *Outcome
}

// OK reports whether the call, and the remap it requested, succeeded.
func (o Outcome) OK() bool {
	if o.Err != nil {
		return false
	}
	return o.Remap == nil || o.Remap.OK()
}

// Binder binds controls and remaps to one light animation set.
type Binder struct {
	doc       document.Document
	target    document.LightSet
	groupName string
	sub       Submitter

	group document.ID
}

// New returns a binder for target. Controls are registered in the group
// called groupName under the set's root group; remap requests go to sub.
func New(doc document.Document, target document.LightSet, groupName string, sub Submitter) *Binder {
	if groupName == "" {
		groupName = config.DefaultGroup
	}
	return &Binder{doc: doc, target: target, groupName: groupName, sub: sub}
}

// FromConfig converts a battery control into a ControlSpec.
func FromConfig(c *config.Control) ControlSpec {
	return ControlSpec{Label: c.Label, Attribute: c.Attribute, Initial: c.Initial, Default: c.Default, Remap: c.Remap}
}

// RemapFromConfig converts a battery remap into a RemapSpec.
func RemapFromConfig(r *config.Remap) RemapSpec {
	return RemapSpec{Control: r.Control, Attribute: r.Attribute, Lo: r.Lo, Hi: r.Hi}
}

// AddControl creates the control described by spec, bound directly to the
// light attribute, and registers it in the binder's group. When spec.Remap
// is set and binding succeeded, the control is remapped with the default
// bounds.
func (b *Binder) AddControl(ctx context.Context, spec ControlSpec) Outcome {
	logger := ctxlog.FromContext(ctx).With("control", spec.Attribute, "label", spec.Label)
	out := Outcome{Kind: KindControl, Name: spec.Attribute, Attribute: spec.Attribute}

	c, err := b.doc.CreateControl(ctx, b.target.ID, document.NewControl{
		Name:      spec.Attribute,
		Value:     spec.Initial,
		Default:   spec.Default,
		Element:   b.target.Light,
		Attribute: spec.Attribute,
	})
	if err != nil {
		out.Err = &BindingError{Control: spec.Attribute, Err: err}
		logger.Error("Failed to add control.", "error", out.Err)
		return out
	}
	out.Control = c.ID

	if err := b.register(ctx, c.ID); err != nil {
		out.Err = &BindingError{Control: spec.Attribute, Group: b.groupName, Err: err}
		logger.Error("Failed to register control, it stays ungrouped.", "error", out.Err)
		return out
	}
	logger.Info("Control added.", "initial", spec.Initial, "default", spec.Default)

	if spec.Remap {
		remap := b.CreateRemap(ctx, RemapSpec{Control: spec.Attribute, Attribute: spec.Attribute, Lo: DefaultLo, Hi: DefaultHi})
		out.Remap = &remap
	}
	return out
}

func (b *Binder) register(ctx context.Context, control document.ID) error {
	if b.group.IsZero() {
		g, err := b.doc.FindOrAddControlGroup(ctx, b.target.ID, b.target.RootGroup, b.groupName)
		if err != nil {
			return err
		}
		b.group = g.ID
	}
	return b.doc.AddControlToGroup(ctx, b.group, control)
}

// CreateRemap wires a lerp operator between the control's channel and the
// attribute, then submits the channel rewiring. The control must already
// exist and feed its attribute directly.
func (b *Binder) CreateRemap(ctx context.Context, spec RemapSpec) Outcome {
	if spec.Attribute == "" {
		spec.Attribute = spec.Control
	}
	logger := ctxlog.FromContext(ctx).With("control", spec.Control, "attribute", spec.Attribute)
	out := Outcome{Kind: KindRemap, Name: spec.Control, Attribute: spec.Attribute}

	c, ok := b.doc.FindControl(ctx, b.target.ID, spec.Control)
	if !ok {
		out.Err = &LookupError{Control: spec.Control, Set: b.target.Name}
		logger.Warn("Skipping remap.", "error", out.Err)
		return out
	}
	out.Control = c.ID

	ch, ok := b.doc.Channel(ctx, c.Channel)
	if !ok {
		out.Err = &ConnectionError{Control: spec.Control, Attribute: spec.Attribute, Err: fmt.Errorf("channel: %w", document.ErrNotFound)}
		logger.Error("Failed to remap control.", "error", out.Err)
		return out
	}
	if ch.Mode != document.ModeDirect {
		out.Err = &ConnectionError{Control: spec.Control, Attribute: spec.Attribute, Err: fmt.Errorf("channel %q is %s, not direct", ch.Name, ch.Mode)}
		logger.Error("Failed to remap control.", "error", out.Err)
		return out
	}

	op, err := b.doc.CreateOperator(ctx, b.target.ID, document.NewOperator{
		Name:   spec.Control + "_rescale",
		Expr:   document.LerpExpr,
		Inputs: document.LerpInputs(spec.Lo, spec.Hi),
	})
	if err != nil {
		out.Err = &ConnectionError{Control: spec.Control, Attribute: spec.Attribute, Err: err}
		logger.Error("Failed to create rescale operator.", "error", out.Err)
		return out
	}

	conn, err := b.doc.CreateConnection(ctx, b.target.ID, document.NewConnection{
		Name:      spec.Control + "_conn",
		From:      op.ID,
		Output:    document.LerpOutput,
		To:        b.target.Light,
		Attribute: spec.Attribute,
	})
	if err != nil {
		if rmErr := b.doc.RemoveOperator(ctx, op.ID); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("remove operator: %w", rmErr))
		}
		out.Err = &ConnectionError{Control: spec.Control, Attribute: spec.Attribute, Err: err}
		logger.Error("Failed to connect rescale operator.", "error", out.Err)
		return out
	}
	out.Operator = op.ID
	out.Connection = conn.ID

	req := scheduler.Request{
		Control:    spec.Control,
		Channel:    c.Channel,
		Operator:   op.ID,
		Connection: conn.ID,
		Input:      document.LerpInput,
		Element:    ch.ToElement,
		Attribute:  ch.ToAttribute,
	}
	out.Request = &req
	if b.sub == nil {
		return out
	}
	if err := b.sub.Submit(ctx, req); err != nil {
		err = fmt.Errorf("queue channel rewiring: %w", err)
		if rmErr := b.unwire(ctx, conn.ID, op.ID); rmErr != nil {
			err = errors.Join(err, rmErr)
		} else {
			out.Operator, out.Connection = "", ""
		}
		out.Err = &ConnectionError{Control: spec.Control, Attribute: spec.Attribute, Err: err}
		logger.Error("Failed to queue remap.", "error", out.Err)
		return out
	}
	logger.Info("Remap queued.", "lo", spec.Lo, "hi", spec.Hi)
	return out
}

// unwire removes a connection and then its operator.
func (b *Binder) unwire(ctx context.Context, conn, op document.ID) error {
	if err := b.doc.RemoveConnection(ctx, conn); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	if err := b.doc.RemoveOperator(ctx, op); err != nil {
		return fmt.Errorf("remove operator: %w", err)
	}
	return nil
}
