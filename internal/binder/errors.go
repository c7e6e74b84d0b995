package binder

import "fmt"

// LookupError is returned when a remap names a control that does not exist.
type LookupError struct {
	Control string
	Set     string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("control %q not found on animation set %q", e.Control, e.Set)
}

// BindingError is returned when a control cannot be created or registered
// in its control group. When Group is set the control itself already
// exists.
type BindingError struct {
	Control string
	Group   string
	Err     error
}

func (e *BindingError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("failed to create control %q: %v", e.Control, e.Err)
	}
	return fmt.Sprintf("failed to register control %q in group %q: %v", e.Control, e.Group, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }

// ConnectionError is returned when the operator or connection of a remap
// cannot be wired.
type ConnectionError struct {
	Control   string
	Attribute string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to wire remap of control %q to %q: %v", e.Control, e.Attribute, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
