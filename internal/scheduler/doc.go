// Package scheduler applies channel rewiring as deferred, strictly ordered
// steps on the host loop.
//
// # Why Scheduler Exists
//
// Moving a control's channel from a direct attribute binding onto an
// operator input cannot happen in one synchronous pass: the document must
// observe the channel detached before it is retargeted. The scheduler turns
// each rewiring Request into three steps and drains them from one global
// FIFO, one step per host loop turn:
//
//  1. Detach   Direct -> Detached
//  2. Retarget Detached -> ViaElement (operator input "value")
//  3. Release  drop this request's hold on the logging guard
//
// Steps of one request always run in that order; steps of different
// requests interleave only in submission order.
//
// # Change Logging
//
// Begin suspends the document's change log through an undo.Guard before any
// remap mutation. Every submitted request holds the guard until its Release
// step, and the batch itself holds it until Close. The log is re-enabled and
// cleared exactly once: after the last Release, or immediately when the
// batch fails, is cancelled, or panics.
//
// # Failure and Cancellation
//
// A failing step marks its request Failed, rolls a Detached channel back to
// Direct and skips the request's remaining mutating steps; its Release still
// runs. Cancelling the context passed to Close, or calling Abort, drops every
// pending step and rolls all Detached channels back to Direct. Requests still
// Direct at that point keep their operator and connection: the channel is
// never rewired, so the operator's output stays at its input default.
package scheduler
