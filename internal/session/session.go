// Package session defines the core interfaces for creating and managing one
// augmentation run: the document being edited, its change journal, the host
// loop and the remap scheduler that operate on it.
package session

import (
	"context"

	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/hostloop"
	"github.com/vk/morelight/internal/scheduler"
	"github.com/vk/morelight/internal/undo"
)

// Options configures a new session.
type Options struct {
	// Target selects the animation set to augment. Empty keeps the scene's
	// current set.
	Target string
	// Metrics instruments the session's scheduler. Nil leaves it
	// uninstrumented.
	Metrics *scheduler.Metrics
}

// SessionFactory creates a Session from a scene snapshot. Different
// implementations can back the document differently, such as in memory or
// through a live host connection.
type SessionFactory interface {
	NewSession(ctx context.Context, scene *config.Scene, opts Options) (Session, error)
}

// Session represents a single run and owns its collaborators.
type Session interface {
	Document() document.Document
	Journal() *undo.Journal
	Loop() *hostloop.Loop
	Scheduler() *scheduler.Scheduler

	// Snapshot returns the current state of the document as a scene.
	Snapshot(ctx context.Context) *config.Scene

	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}
