// Package orchestrator runs the light augmentation command against the
// current animation set: validate the target, add the control battery,
// queue the remaps, drain them, and mark the set processed.
//
// Only target validation is fatal. Every other failure is recorded in the
// Report and logged, and the run continues with the remaining items.
package orchestrator
