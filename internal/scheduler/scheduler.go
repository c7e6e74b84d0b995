package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/document"
	"github.com/vk/morelight/internal/hostloop"
	"github.com/vk/morelight/internal/undo"
)

// Loop is the host loop the scheduler posts its steps to and drives on Close.
type Loop interface {
	hostloop.Poster
	RunUntilIdle(ctx context.Context) error
}

// Options configures a Scheduler.
type Options struct {
	// Metrics receives step and batch counters. Nil creates unregistered
	// collectors.
	Metrics *Metrics
}

// Scheduler owns the global remap FIFO. At most one Batch is open at a time.
type Scheduler struct {
	doc     ChannelMutator
	journal *undo.Journal
	loop    Loop
	metrics *Metrics

	mu     sync.Mutex
	queue  []step
	posted bool
	batch  *Batch
}

type step struct {
	kind  StepKind
	entry *entry
}

type entry struct {
	req        Request
	state      State
	rolledBack bool
	unwired    bool
	err        error
	release    func()
}

// New returns a scheduler that mutates doc, suspends journal while a batch
// is open, and runs its steps on loop.
func New(doc ChannelMutator, journal *undo.Journal, loop Loop, opts Options) *Scheduler {
	m := opts.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Scheduler{doc: doc, journal: journal, loop: loop, metrics: m}
}

// Pending returns the number of queued steps.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Begin opens a batch and suspends change logging for its whole span.
func (s *Scheduler) Begin(ctx context.Context) (*Batch, error) {
	s.mu.Lock()
	if s.batch != nil {
		s.mu.Unlock()
		return nil, ErrBatchInProgress
	}
	b := &Batch{s: s, done: make(chan struct{})}
	s.batch = b
	s.mu.Unlock()

	// Suspend notifies toggle listeners, so it runs without s.mu held.
	guard, err := s.journal.Suspend()
	if err != nil {
		s.mu.Lock()
		s.batch = nil
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrBatchInProgress, err)
	}
	b.guard = guard
	ctxlog.FromContext(ctx).Debug("Remap batch opened, change logging suspended.")
	return b, nil
}

// Abort cancels the open batch, if any. Pending steps are dropped on the
// next loop turn, or by Close if the loop is not running.
func (s *Scheduler) Abort() {
	s.mu.Lock()
	b := s.batch
	s.mu.Unlock()
	if b != nil {
		b.aborted.Store(true)
	}
}

// postLocked schedules a pump turn unless one is already queued.
func (s *Scheduler) postLocked() {
	if s.posted {
		return
	}
	s.posted = true
	s.loop.Post(s.pump)
}

func (s *Scheduler) setPendingLocked() {
	s.metrics.Pending.Set(float64(len(s.queue)))
}

// pump runs exactly one step and posts the next turn only after that step
// has completed.
func (s *Scheduler) pump(ctx context.Context) {
	s.mu.Lock()
	s.posted = false
	b := s.batch
	if b == nil || b.finished {
		s.mu.Unlock()
		return
	}
	if b.aborted.Load() || ctx.Err() != nil {
		s.mu.Unlock()
		b.cancel(ctx, b.cancelCause(ctx))
		return
	}
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	st := s.queue[0]
	s.queue = s.queue[1:]
	s.setPendingLocked()
	s.mu.Unlock()

	s.run(ctx, st)

	s.mu.Lock()
	if b.finished {
		s.mu.Unlock()
		return
	}
	if len(s.queue) > 0 {
		s.postLocked()
		s.mu.Unlock()
		return
	}
	closed := b.closed
	s.mu.Unlock()
	if closed {
		b.finish(ctx, nil)
	}
}

func (s *Scheduler) run(ctx context.Context, st step) {
	e := st.entry
	logger := ctxlog.FromContext(ctx).With("control", e.req.Control, "step", st.kind.String())

	if st.kind == StepRelease {
		e.release()
		s.metrics.Steps.WithLabelValues(st.kind.String(), "ok").Inc()
		logger.Debug("Remap step applied.")
		return
	}

	s.mu.Lock()
	state := e.state
	s.mu.Unlock()
	if state == StateFailed || state == StateCancelled {
		s.metrics.Steps.WithLabelValues(st.kind.String(), "skipped").Inc()
		logger.Debug("Remap step skipped.", "state", state.String())
		return
	}

	if err := s.apply(ctx, st.kind, e.req); err != nil {
		stepErr := &StepError{Kind: st.kind, Control: e.req.Control, Err: err}
		s.metrics.Steps.WithLabelValues(st.kind.String(), "failed").Inc()
		logger.Error("Remap step failed.", "error", err)

		s.mu.Lock()
		e.state = StateFailed
		e.err = stepErr
		s.mu.Unlock()

		if rbErr := s.rollbackIfDetached(ctx, e); rbErr != nil {
			logger.Error("Failed to restore channel after failed step.", "error", rbErr)
			s.mu.Lock()
			e.err = errors.Join(stepErr, rbErr)
			s.mu.Unlock()
			return
		}
		if uwErr := s.unwire(ctx, e); uwErr != nil {
			logger.Error("Failed to remove operator after failed step.", "error", uwErr)
			s.mu.Lock()
			e.err = errors.Join(stepErr, uwErr)
			s.mu.Unlock()
		}
		return
	}

	s.mu.Lock()
	switch st.kind {
	case StepDetach:
		e.state = StateDetached
	case StepRetarget:
		e.state = StateViaElement
	}
	s.mu.Unlock()
	s.metrics.Steps.WithLabelValues(st.kind.String(), "ok").Inc()
	logger.Debug("Remap step applied.")
}

// apply performs a mutating step. A panic is converted into an error.
func (s *Scheduler) apply(ctx context.Context, kind StepKind, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	switch kind {
	case StepDetach:
		return s.doc.DetachChannel(ctx, req.Channel)
	case StepRetarget:
		return s.doc.RetargetChannel(ctx, req.Channel, req.Operator, req.Input)
	}
	return fmt.Errorf("unexpected step kind %s", kind)
}

// rollbackIfDetached restores e's channel to its direct binding when the
// document reports it detached.
func (s *Scheduler) rollbackIfDetached(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	ch, ok := s.doc.Channel(ctx, e.req.Channel)
	if !ok || ch.Mode != document.ModeDetached {
		return nil
	}
	if err := s.doc.RestoreChannel(ctx, e.req.Channel, e.req.Element, e.req.Attribute); err != nil {
		return err
	}
	s.metrics.Rollbacks.Inc()
	s.mu.Lock()
	e.rolledBack = true
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Warn("Channel restored to its direct binding.", "control", e.req.Control)
	return nil
}

// unwire removes the connection and operator of a request whose channel is
// back on its direct binding, so the attribute is driven by one source only.
// It runs inside the logging suspension.
func (s *Scheduler) unwire(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if e.req.Operator.IsZero() {
		return nil
	}
	ch, ok := s.doc.Channel(ctx, e.req.Channel)
	if ok && ch.Mode != document.ModeDirect {
		return nil
	}
	if !e.req.Connection.IsZero() {
		if err := s.doc.RemoveConnection(ctx, e.req.Connection); err != nil && !errors.Is(err, document.ErrNotFound) {
			return fmt.Errorf("remove connection: %w", err)
		}
	}
	if err := s.doc.RemoveOperator(ctx, e.req.Operator); err != nil && !errors.Is(err, document.ErrNotFound) {
		return fmt.Errorf("remove operator: %w", err)
	}
	s.metrics.Unwired.Inc()
	s.mu.Lock()
	e.unwired = true
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Operator removed from unfinished remap.", "control", e.req.Control)
	return nil
}

// Batch is one open run of remaps sharing a single logging suspension.
type Batch struct {
	s     *Scheduler
	guard *undo.Guard

	entries  []*entry
	closed   bool
	finished bool
	err      error
	done     chan struct{}
	aborted  atomic.Bool
}

// Submit queues the three steps of req. It never mutates the document.
func (b *Batch) Submit(ctx context.Context, req Request) error {
	if req.Input == "" {
		req.Input = DefaultInput
	}
	if err := req.validate(); err != nil {
		return err
	}

	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.closed || b.finished {
		return ErrBatchClosed
	}
	e := &entry{req: req, release: b.guard.Hold()}
	b.entries = append(b.entries, e)
	s.queue = append(s.queue,
		step{kind: StepDetach, entry: e},
		step{kind: StepRetarget, entry: e},
		step{kind: StepRelease, entry: e},
	)
	s.setPendingLocked()
	s.postLocked()
	ctxlog.FromContext(ctx).Debug("Remap queued.", "control", req.Control, "pending", len(s.queue))
	return nil
}

// Close stops accepting requests, drops the batch's own hold on the logging
// guard and drains the queue on the host loop. It returns once every step
// has run or the batch was cancelled; change logging is restored by then.
//
// Close drives the loop itself. When the loop is already being run by
// another goroutine, Close waits for that goroutine to drain the batch; it
// must not be called from inside a loop callback.
func (b *Batch) Close(ctx context.Context) error {
	s := b.s
	s.mu.Lock()
	if b.closed {
		s.mu.Unlock()
		<-b.done
		return b.Err()
	}
	b.closed = true
	idle := len(s.queue) == 0
	s.mu.Unlock()

	b.guard.Release()

	if b.aborted.Load() || ctx.Err() != nil {
		b.cancel(ctx, b.cancelCause(ctx))
		return b.Err()
	}
	if idle {
		b.finish(ctx, nil)
		return b.Err()
	}

	err := s.loop.RunUntilIdle(ctx)
	switch {
	case errors.Is(err, hostloop.ErrReentrant):
		select {
		case <-b.done:
		case <-ctx.Done():
			b.cancel(ctx, b.cancelCause(ctx))
		}
	case err != nil:
		b.cancel(ctx, b.cancelCause(ctx))
	default:
		s.mu.Lock()
		pendingAbort := b.aborted.Load() && !b.finished
		s.mu.Unlock()
		if pendingAbort {
			b.cancel(ctx, b.cancelCause(ctx))
		}
		b.finish(ctx, nil)
	}
	return b.Err()
}

func (b *Batch) cancelCause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return ErrCancelled
}

// cancel drops every pending step, rolls Detached channels back, removes the
// operators of unfinished requests and ends the logging suspension.
func (b *Batch) cancel(ctx context.Context, cause error) {
	s := b.s
	s.mu.Lock()
	if b.finished {
		s.mu.Unlock()
		return
	}
	s.queue = nil
	s.setPendingLocked()
	var cancelled []*entry
	detached := 0
	for _, e := range b.entries {
		if e.state.Terminal() {
			continue
		}
		if e.state == StateDetached {
			detached++
		}
		cancelled = append(cancelled, e)
		e.state = StateCancelled
		e.err = cause
	}
	s.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Warn("Remap batch cancelled, dropping pending steps.", "detached", detached, "cause", cause)

	rctx := context.WithoutCancel(ctx)
	for _, e := range cancelled {
		err := b.s.rollbackIfDetached(rctx, e)
		if err == nil {
			err = b.s.unwire(rctx, e)
		}
		if err != nil {
			logger.Error("Failed to unwind remap during cancellation.", "control", e.req.Control, "error", err)
			s.mu.Lock()
			e.err = errors.Join(cause, err)
			s.mu.Unlock()
		}
	}
	for _, e := range b.entries {
		e.release()
	}
	b.finish(ctx, cause)
}

// finish marks the batch done and guarantees the logging suspension has
// ended. It is idempotent.
func (b *Batch) finish(ctx context.Context, err error) {
	s := b.s
	s.mu.Lock()
	if b.finished {
		s.mu.Unlock()
		return
	}
	b.finished = true
	b.err = err
	if s.batch == b {
		s.batch = nil
	}
	outcome := "ok"
	failed := 0
	for _, e := range b.entries {
		if e.state == StateFailed {
			failed++
		}
	}
	switch {
	case err != nil:
		outcome = "cancelled"
	case failed > 0:
		outcome = "partial"
	}
	requests := len(b.entries)
	s.mu.Unlock()

	b.guard.ForceRelease()
	s.metrics.Batches.WithLabelValues(outcome).Inc()
	close(b.done)
	ctxlog.FromContext(ctx).Debug("Remap batch finished, change logging restored.",
		"outcome", outcome, "requests", requests, "failed", failed)
}

// Done is closed once the batch has finished.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Err returns the cancellation cause, or nil.
func (b *Batch) Err() error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.err
}

// Results returns the outcome of every submitted request in submission
// order.
func (b *Batch) Results() []Result {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	out := make([]Result, len(b.entries))
	for i, e := range b.entries {
		out[i] = Result{Request: e.req, State: e.state, RolledBack: e.rolledBack, Unwired: e.unwired, Err: e.err}
	}
	return out
}
