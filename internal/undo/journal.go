// Package undo models the document's process-wide change log: the flag that
// decides whether graph mutations are recorded for undo, and the recorded
// entries themselves.
//
// Some multi-step edits must run with recording suspended. Callers never flip
// the flag directly for that; they take a Guard, which suspends recording once
// and restores it (enabled, with the log cleared) exactly once, however the
// guarded work ends.
package undo

import (
	"errors"
	"sync"
	"time"
)

// ErrSuspended is returned by Suspend when another guard already holds the
// suspension.
var ErrSuspended = errors.New("undo: change logging is already suspended by another guard")

// Entry is one recorded mutation.
type Entry struct {
	At     time.Time
	Op     string
	Target string
}

// Listener observes flag transitions. It is called with the journal's lock
// released.
type Listener func(enabled bool)

// Journal is the change log. The zero value is not usable; use NewJournal.
type Journal struct {
	mu        sync.Mutex
	enabled   bool
	entries   []Entry
	guard     *Guard
	listeners []Listener
	now       func() time.Time
}

// NewJournal returns an enabled, empty journal.
func NewJournal() *Journal {
	return &Journal{enabled: true, now: time.Now}
}

// Enabled reports whether mutations are currently recorded.
func (j *Journal) Enabled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enabled
}

// SetEnabled flips the flag. This is the raw host primitive; guarded work
// should use Suspend instead.
func (j *Journal) SetEnabled(enabled bool) {
	j.mu.Lock()
	changed := j.enabled != enabled
	j.enabled = enabled
	listeners := j.listeners
	j.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(enabled)
		}
	}
}

// Clear drops every recorded entry.
func (j *Journal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// Record appends an entry if recording is enabled and reports whether it did.
func (j *Journal) Record(op, target string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.enabled {
		return false
	}
	j.entries = append(j.entries, Entry{At: j.now(), Op: op, Target: target})
	return true
}

// Entries returns a copy of the recorded entries.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// OnToggle registers a listener for flag transitions.
func (j *Journal) OnToggle(l Listener) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.listeners = append(j.listeners, l)
}

// Suspended reports whether a guard currently holds the suspension.
func (j *Journal) Suspended() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.guard != nil
}

// Suspend disables recording and returns the guard that owns the
// suspension. The guard starts with a single hold belonging to the caller.
func (j *Journal) Suspend() (*Guard, error) {
	j.mu.Lock()
	if j.guard != nil {
		j.mu.Unlock()
		return nil, ErrSuspended
	}
	g := &Guard{journal: j, holds: 1}
	j.guard = g
	j.mu.Unlock()

	j.SetEnabled(false)
	return g, nil
}

// restore re-enables recording and clears the log on behalf of g.
func (j *Journal) restore(g *Guard) {
	j.mu.Lock()
	if j.guard == g {
		j.guard = nil
	}
	j.entries = nil
	j.mu.Unlock()

	j.SetEnabled(true)
}

// Recover forces recording back on, dropping any guard still holding the
// suspension, and clears the log only if something had to be recovered. A
// healthy journal is left untouched. It reports whether the journal was
// suspended. A guard dropped this way no longer affects the journal.
func (j *Journal) Recover() bool {
	j.mu.Lock()
	stale := j.guard
	recovered := stale != nil || !j.enabled
	if !recovered {
		j.mu.Unlock()
		return false
	}
	j.guard = nil
	j.entries = nil
	j.mu.Unlock()

	if stale != nil {
		stale.abandon()
	}
	j.SetEnabled(true)
	return true
}
