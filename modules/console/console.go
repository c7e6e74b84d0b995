// Package console forwards log lines to a remote socket.io console, so a
// run can be watched from the host application's script console.
package console

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/morelight/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the event each log line is emitted as.
const DefaultEvent = "console"

// DefaultConnectTimeout bounds Dial when Options.ConnectTimeout is zero.
const DefaultConnectTimeout = 15 * time.Second

// Options configures Dial.
type Options struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Emitter is the part of a socket.io client the sink writes to.
type Emitter interface {
	Emit(ev string, args ...any) error
}

// Sink is an io.Writer that emits every complete line written to it as one
// socket.io event. It is safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	emitter Emitter
	event   string
	partial []byte
	closer  func()
	closed  bool
}

// NewSink returns a sink emitting to e. An empty event means DefaultEvent.
func NewSink(e Emitter, event string) *Sink {
	if event == "" {
		event = DefaultEvent
	}
	return &Sink{emitter: e, event: event}
}

// Write emits each complete line in p. A trailing partial line is kept
// until the next Write or Close.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("console sink is closed")
	}

	s.partial = append(s.partial, p...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := string(s.partial[:i])
		s.partial = s.partial[i+1:]
		if err := s.emitter.Emit(s.event, line); err != nil {
			return len(p), fmt.Errorf("failed to emit console line: %w", err)
		}
	}
	return len(p), nil
}

// Close flushes a pending partial line and disconnects a dialed client.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if len(s.partial) > 0 {
		err = s.emitter.Emit(s.event, string(s.partial))
		s.partial = nil
	}
	if s.closer != nil {
		s.closer()
	}
	return err
}

// Dial connects to the console server and returns a sink bound to it. It
// waits for the connection to be established or fail.
func Dial(ctx context.Context, opts Options) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "console", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("console URL %q must include scheme and host", opts.URL)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before connecting to console: %w", err)
	}

	sockOpts := socket.DefaultOptions()
	sockOpts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Console connected.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})
	io.Connect()

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	sink := NewSink(io, opts.Event)
	sink.closer = func() { io.Disconnect() }
	return sink, nil
}
