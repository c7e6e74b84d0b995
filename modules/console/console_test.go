package console

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
	lines  []string
	err    error
}

func (r *recordingEmitter) Emit(ev string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	r.lines = append(r.lines, args[0].(string))
	return nil
}

func TestSink_EmitsCompleteLines(t *testing.T) {
	// --- Arrange ---
	rec := &recordingEmitter{}
	sink := NewSink(rec, "")

	// --- Act ---
	_, err := sink.Write([]byte("[More-Light] first\n[More-Light] sec"))
	require.NoError(t, err)
	_, err = sink.Write([]byte("ond\n[More-Light] tail"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	// --- Assert ---
	assert.Equal(t, []string{"[More-Light] first", "[More-Light] second", "[More-Light] tail"}, rec.lines)
	assert.Equal(t, []string{DefaultEvent, DefaultEvent, DefaultEvent}, rec.events)

	_, err = sink.Write([]byte("late\n"))
	assert.Error(t, err, "writes after Close are rejected")
	assert.NoError(t, sink.Close(), "Close is idempotent")
}

func TestSink_PropagatesEmitErrors(t *testing.T) {
	rec := &recordingEmitter{err: errors.New("socket closed")}
	sink := NewSink(rec, "log")

	n, err := sink.Write([]byte("line\n"))

	assert.Equal(t, 5, n)
	assert.ErrorContains(t, err, "socket closed")
}

func TestDial_RejectsBadInput(t *testing.T) {
	testCases := []struct {
		name   string
		url    string
		cancel bool
		errMsg string
	}{
		{name: "no scheme", url: "localhost:3000", errMsg: "must include scheme and host"},
		{name: "unparsable", url: "http://[::1", errMsg: "failed to parse URL"},
		{name: "cancelled context", url: "http://127.0.0.1:1", cancel: true, errMsg: "context cancelled"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			if tc.cancel {
				cancel()
			}
			defer cancel()

			_, err := Dial(ctx, Options{URL: tc.url})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
