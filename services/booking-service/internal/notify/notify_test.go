package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	to    []string
	err   error
	block chan struct{}
}

func (f *fakeSender) ProviderID() string { return "fake" }

func (f *fakeSender) Send(ctx context.Context, to, _, _ string) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.to = append(f.to, to)
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestBuildMessageIsHTML(t *testing.T) {
	msg := buildMessage("from@example.com", "to@example.com", "Booking confirmed", "<p>hi</p>")
	assert.Contains(t, msg, "Content-Type: text/html; charset=utf-8\r\n")
	assert.Contains(t, msg, "To: to@example.com\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>\r\n"))
}

func TestSMTPSenderRequiresHost(t *testing.T) {
	err := NewSMTPSender("", "1025", "").Send(context.Background(), "a@example.com", "s", "b")
	assert.Error(t, err)
}

func TestResendSender(t *testing.T) {
	var got struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	s, err := NewResendSender(srv.URL, "re_test", "Slotbook <no-reply@example.com>")
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), "ann@example.com", "Booking confirmed", "<p>hi</p>"))
	assert.Equal(t, []string{"ann@example.com"}, got.To)
	assert.Equal(t, "Booking confirmed", got.Subject)
	assert.Equal(t, "<p>hi</p>", got.HTML)
}

func TestResendSenderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	}))
	defer srv.Close()

	s, err := NewResendSender(srv.URL+"/", "re_test", "x")
	require.NoError(t, err)
	err = s.Send(context.Background(), "a@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from")

	s, err = NewResendSender(srv.URL, "", "x")
	require.NoError(t, err)
	assert.Error(t, s.Send(context.Background(), "a@example.com", "s", "b"))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeSender{err: errors.New("connection refused")}
	b := NewBreakerSender(inner, quietLogger(), BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute})

	ctx := context.Background()
	assert.Error(t, b.Send(ctx, "a@example.com", "s", "b"))
	assert.Error(t, b.Send(ctx, "a@example.com", "s", "b"))

	err := b.Send(ctx, "a@example.com", "s", "b")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.count(), "open circuit short-circuits the provider")
}

func TestDispatcherDelivers(t *testing.T) {
	inner := &fakeSender{}
	d := NewDispatcher(inner, quietLogger(), DispatcherConfig{QueueSize: 4, Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Send(ctx, "a@example.com", "s", "b"))
	cancel() // a finished request does not abort delivery

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, inner.count())
	assert.ErrorIs(t, d.Send(context.Background(), "b@example.com", "s", "b"), errDispatcherClosed)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	inner := &fakeSender{block: make(chan struct{})}
	d := NewDispatcher(inner, quietLogger(), DispatcherConfig{QueueSize: 1, Workers: 1})

	// The worker picks up the first message and blocks; the second fills the queue.
	require.NoError(t, d.Send(context.Background(), "1@example.com", "s", "b"))
	assert.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Send(context.Background(), "2@example.com", "s", "b"))
	assert.ErrorIs(t, d.Send(context.Background(), "3@example.com", "s", "b"), ErrQueueFull)

	close(inner.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, inner.count())
}
