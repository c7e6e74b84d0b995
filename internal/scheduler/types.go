package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/morelight/internal/document"
)

var (
	// ErrBatchInProgress is returned by Begin while another batch is open.
	ErrBatchInProgress = errors.New("scheduler: a remap batch is already in progress")
	// ErrBatchClosed is returned by Submit after Close.
	ErrBatchClosed = errors.New("scheduler: batch is closed")
	// ErrCancelled is recorded on requests dropped by cancellation.
	ErrCancelled = errors.New("scheduler: batch cancelled")
)

// DefaultInput is the operator input a rewired channel drives.
const DefaultInput = document.LerpInput

// ChannelMutator is the part of the document the scheduler mutates.
type ChannelMutator interface {
	Channel(ctx context.Context, id document.ID) (*document.Channel, bool)
	DetachChannel(ctx context.Context, id document.ID) error
	RetargetChannel(ctx context.Context, id document.ID, element document.ID, attribute string) error
	RestoreChannel(ctx context.Context, id document.ID, element document.ID, attribute string) error
	RemoveConnection(ctx context.Context, id document.ID) error
	RemoveOperator(ctx context.Context, id document.ID) error
}

// Request asks for one channel to be moved from its direct attribute binding
// onto an operator input. Connection, when set, is the control-to-operator
// connection removed together with the operator if the request never
// completes.
type Request struct {
	Control    string
	Channel    document.ID
	Operator   document.ID
	Connection document.ID
	Input      string
	Element    document.ID
	Attribute  string
}

func (r Request) validate() error {
	switch {
	case r.Channel.IsZero():
		return fmt.Errorf("request for control %q has no channel", r.Control)
	case r.Operator.IsZero():
		return fmt.Errorf("request for control %q has no operator", r.Control)
	case r.Element.IsZero() || r.Attribute == "":
		return fmt.Errorf("request for control %q has no rollback target", r.Control)
	}
	return nil
}

// StepKind identifies one of the three steps of a request.
type StepKind int

const (
	StepDetach StepKind = iota
	StepRetarget
	StepRelease
)

func (k StepKind) String() string {
	switch k {
	case StepDetach:
		return "detach"
	case StepRetarget:
		return "retarget"
	case StepRelease:
		return "release"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// State is the per-request rewiring state.
type State int

const (
	StateDirect State = iota
	StateDetached
	StateViaElement
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateDirect:
		return "direct"
	case StateDetached:
		return "detached"
	case StateViaElement:
		return "via_element"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further step will change the state.
func (s State) Terminal() bool {
	return s == StateViaElement || s == StateFailed || s == StateCancelled
}

// Result is the outcome of one request. Unwired reports that the operator
// and connection of a failed or cancelled request were removed.
type Result struct {
	Request    Request
	State      State
	RolledBack bool
	Unwired    bool
	Err        error
}

// StepError describes a failed step.
type StepError struct {
	Kind    StepKind
	Control string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step for control %q failed: %v", e.Kind, e.Control, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
