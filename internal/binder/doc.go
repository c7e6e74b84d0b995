// Package binder adds controls to a light animation set and prepares their
// remaps.
//
// AddControl creates a control whose channel feeds a light attribute
// directly and registers it in the set's control group. CreateRemap builds
// the lerp operator and the connection that rescale a control, then hands
// the channel rewiring to the scheduler as a Request: the binder itself
// never changes a channel's mode.
//
// Every call returns an Outcome. Failures are logged, recorded in the
// Outcome with one of the typed errors below, and never abort the caller's
// batch.
package binder
