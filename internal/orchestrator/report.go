package orchestrator

import (
	"fmt"

	"github.com/vk/morelight/internal/binder"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/scheduler"
)

// ValidationError is returned when the current animation set cannot be
// augmented. No mutation has happened when it is returned.
type ValidationError struct {
	Set  string
	Kind document.Kind
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("animation set %q is not a light (kind %s)", e.Set, e.Kind)
}

// Report is the per-item account of one run.
type Report struct {
	Target           string
	AlreadyProcessed bool
	LoggingRecovered bool
	Controls         []binder.Outcome
	Remaps           []binder.Outcome
	Rewiring         []scheduler.Result
	Marked           bool
}

// Failures returns every per-item error of the run, including failed or
// cancelled channel rewiring.
func (r *Report) Failures() []error {
	var errs []error
	for _, o := range r.Controls {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
		if o.Remap != nil && o.Remap.Err != nil {
			errs = append(errs, o.Remap.Err)
		}
	}
	for _, o := range r.Remaps {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	for _, res := range r.Rewiring {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs
}

// Remapped returns the controls whose channel ended up driving an operator.
func (r *Report) Remapped() []string {
	var out []string
	for _, res := range r.Rewiring {
		if res.State == scheduler.StateViaElement {
			out = append(out, res.Request.Control)
		}
	}
	return out
}
