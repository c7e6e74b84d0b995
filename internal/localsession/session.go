// Package localsession provides a concrete implementation of the
// session.Session and session.SessionFactory interfaces backed by an
// in-memory document.
package localsession

import (
	"context"
	"fmt"

	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/hostloop"
	"github.com/vk/morelight/internal/inmemorydoc"
	"github.com/vk/morelight/internal/scheduler"
	"github.com/vk/morelight/internal/session"
	"github.com/vk/morelight/internal/undo"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct{}

var _ session.SessionFactory = (*SessionFactory)(nil)

// NewSession loads scene into a fresh in-memory document and wires the
// journal, loop and scheduler around it.
func (f *SessionFactory) NewSession(ctx context.Context, scene *config.Scene, opts session.Options) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating local session.", "sets", len(scene.Sets), "target", opts.Target)

	journal := undo.NewJournal()
	store, err := inmemorydoc.FromScene(ctx, scene, journal)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	if opts.Target != "" {
		if err := store.SelectSet(opts.Target); err != nil {
			return nil, fmt.Errorf("failed to select target: %w", err)
		}
	}

	journal.OnToggle(func(enabled bool) {
		logger.Debug("Change logging toggled.", "enabled", enabled)
	})

	loop := hostloop.New()
	sched := scheduler.New(store, journal, loop, scheduler.Options{Metrics: opts.Metrics})
	return &Session{store: store, journal: journal, loop: loop, sched: sched}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	store   *inmemorydoc.Store
	journal *undo.Journal
	loop    *hostloop.Loop
	sched   *scheduler.Scheduler
}

// Document returns the in-memory document.
func (s *Session) Document() document.Document { return s.store }

// Store returns the concrete in-memory document.
func (s *Session) Store() *inmemorydoc.Store { return s.store }

// Journal returns the document's change journal.
func (s *Session) Journal() *undo.Journal { return s.journal }

// Loop returns the host loop the scheduler runs on.
func (s *Session) Loop() *hostloop.Loop { return s.loop }

// Scheduler returns the remap scheduler.
func (s *Session) Scheduler() *scheduler.Scheduler { return s.sched }

// Snapshot exports the document.
func (s *Session) Snapshot(ctx context.Context) *config.Scene { return s.store.Scene(ctx) }

// Close aborts any batch still open and drops queued loop work.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if n := s.sched.Pending(); n > 0 {
		logger.Warn("Closing session with remap steps still queued.", "pending", n)
		s.sched.Abort()
		if err := s.loop.RunUntilIdle(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("failed to drain host loop: %w", err)
		}
	}
	if s.journal.Suspended() {
		logger.Warn("Change logging still suspended at session close, recovering.")
		s.journal.Recover()
	}
	logger.Debug("Local session closed.")
	return nil
}
