package hostloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUntilIdle_FIFO(t *testing.T) {
	// --- Arrange ---
	l := New()
	var order []string
	l.Post(func(ctx context.Context) {
		order = append(order, "a")
		l.Post(func(context.Context) { order = append(order, "c") })
	})
	l.Post(func(context.Context) { order = append(order, "b") })

	// --- Act ---
	err := l.RunUntilIdle(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order, "work posted from a callback runs after what was already queued")
	assert.Zero(t, l.Pending())
	assert.EqualValues(t, 3, l.Turns())
}

func TestPost_NeverRunsInline(t *testing.T) {
	l := New()
	ran := false
	l.Post(func(context.Context) { ran = true })
	assert.False(t, ran)
	assert.Equal(t, 1, l.Pending())
}

func TestRunUntilIdle_Reentrant(t *testing.T) {
	l := New()
	var inner error
	l.Post(func(ctx context.Context) { inner = l.RunUntilIdle(ctx) })

	require.NoError(t, l.RunUntilIdle(context.Background()))
	assert.ErrorIs(t, inner, ErrReentrant)
}

func TestRunUntilIdle_CancelledBetweenCallbacks(t *testing.T) {
	// --- Arrange ---
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ran := 0
	l.Post(func(context.Context) { ran++; cancel() })
	l.Post(func(context.Context) { ran++ })

	// --- Act ---
	err := l.RunUntilIdle(ctx)

	// --- Assert ---
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ran, "the running callback completes, the next one is not started")
	assert.Equal(t, 1, l.Pending())
}

func TestRunUntilIdle_RecoversPanics(t *testing.T) {
	l := New()
	after := false
	l.Post(func(context.Context) { panic("boom") })
	l.Post(func(context.Context) { after = true })

	require.NoError(t, l.RunUntilIdle(context.Background()))
	assert.True(t, after)
}
