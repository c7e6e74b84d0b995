// Package hostloop is the document host's deferred-callback primitive: a
// single-threaded, cooperative loop that runs posted callbacks one at a time
// in FIFO order.
//
// # Semantics
//
// A callback runs to completion before the next one starts; the only
// suspension points are between callbacks. Callbacks may Post further work,
// which is appended to the tail of the queue and runs in a later turn. This
// is the property multi-step graph edits rely on: every step observes the
// document exactly as the previous step left it.
//
// # Thread-Safety
//
// Post and Pending are safe to call from any goroutine. RunUntilIdle drives
// the loop on the calling goroutine and must not be called from inside a
// callback or from two goroutines at once; doing so returns ErrReentrant.
package hostloop
