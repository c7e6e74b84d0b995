package hostloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/morelight/internal/ctxlog"
)

// ErrReentrant is returned when the loop is driven from inside one of its own
// callbacks, or from two goroutines at once.
var ErrReentrant = errors.New("hostloop: loop is already running")

// Callback is a unit of deferred work.
type Callback func(ctx context.Context)

// Poster is the narrow view of the loop that producers of work depend on.
type Poster interface {
	Post(fn Callback)
}

// Loop is a cooperative FIFO of callbacks.
type Loop struct {
	mu      sync.Mutex
	queue   []Callback
	running atomic.Bool
	turns   atomic.Uint64
}

var _ Poster = (*Loop)(nil)

// New returns an idle loop.
func New() *Loop {
	return &Loop{}
}

// Post appends fn to the queue. It never blocks and never runs fn inline.
func (l *Loop) Post(fn Callback) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
}

// Pending returns the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Turns returns how many callbacks the loop has run since it was created.
func (l *Loop) Turns() uint64 {
	return l.turns.Load()
}

// RunUntilIdle runs callbacks until the queue is empty, including any posted
// while draining. It stops early with ctx.Err() if ctx is cancelled between
// two callbacks; the remaining callbacks stay queued.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrReentrant
	}
	defer l.running.Store(false)
	return l.drain(ctx)
}

func (l *Loop) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn, ok := l.next()
		if !ok {
			return nil
		}
		l.turn(ctx, fn)
	}
}

func (l *Loop) next() (Callback, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// turn runs a single callback. A panicking callback is logged and the loop
// moves on to the next one.
func (l *Loop) turn(ctx context.Context, fn Callback) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Host loop callback panicked.", "panic", fmt.Sprint(r), "turn", l.turns.Load())
		}
	}()
	l.turns.Add(1)
	fn(ctx)
}
