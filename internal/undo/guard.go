package undo

import "sync"

// Guard owns one suspension of a Journal. It is reference counted: the
// suspension ends when the last hold is released, or immediately on
// ForceRelease. Either way the journal is restored exactly once.
type Guard struct {
	journal *Journal

	mu       sync.Mutex
	holds    int
	released bool
	own      sync.Once
}

// Hold adds a hold on the suspension and returns the function that drops
// it. The returned function is safe to call more than once; only the first
// call counts. Holding a released guard is a no-op.
func (g *Guard) Hold() func() {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return func() {}
	}
	g.holds++
	g.mu.Unlock()

	var once sync.Once
	return func() { once.Do(g.drop) }
}

// Release drops the hold taken by Suspend. Only the first call counts.
func (g *Guard) Release() {
	g.own.Do(g.drop)
}

// ForceRelease ends the suspension regardless of outstanding holds. Used on
// failure and cancellation paths.
func (g *Guard) ForceRelease() {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	g.holds = 0
	g.mu.Unlock()

	g.journal.restore(g)
}

// Released reports whether the suspension has ended.
func (g *Guard) Released() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released
}

// Holds returns the number of outstanding holds.
func (g *Guard) Holds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holds
}

func (g *Guard) drop() {
	g.mu.Lock()
	if g.released || g.holds == 0 {
		g.mu.Unlock()
		return
	}
	g.holds--
	if g.holds > 0 {
		g.mu.Unlock()
		return
	}
	g.released = true
	g.mu.Unlock()

	g.journal.restore(g)
}

// abandon marks the guard released without touching the journal.
func (g *Guard) abandon() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = true
	g.holds = 0
}
