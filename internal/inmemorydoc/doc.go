// Package inmemorydoc provides a thread-safe, in-memory implementation of
// the document.Document interface.
//
// # Purpose
//
// The real document lives inside the host application. This package stands
// in for it so a run can be driven from the CLI and from tests: it keeps the
// scene graph in maps guarded by a single RWMutex, records every mutation in
// an undo.Journal while recording is enabled, and notifies observers after
// each mutation becomes visible.
//
// # Concurrency Model
//
// All reads take the read lock and return copies, so callers never observe a
// half-applied mutation. Observers run after the write lock is released and
// may read the store.
package inmemorydoc
