package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned when the dispatcher cannot accept more mail.
var ErrQueueFull = errors.New("notification queue full")

var errDispatcherClosed = errors.New("notification dispatcher closed")

type message struct {
	ctx     context.Context
	to      string
	subject string
	body    string
}

// Dispatcher moves sends off the request path. Send enqueues and returns;
// workers deliver with their own per-message timeout. Mail that does not fit
// the queue is dropped and reported to the caller.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	queue   chan message

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

func NewDispatcher(sender Sender, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sender:  sender,
		logger:  logger,
		timeout: cfg.SendTimeout,
		queue:   make(chan message, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Send enqueues one email. The request context is detached so a finished
// request does not cancel delivery, but its values (trace) are kept.
func (d *Dispatcher) Send(ctx context.Context, to, subject, htmlBody string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errDispatcherClosed
	}
	select {
	case d.queue <- message{ctx: context.WithoutCancel(ctx), to: to, subject: subject, body: htmlBody}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting mail and waits for queued mail to be attempted or ctx
// to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for m := range d.queue {
		ctx, cancel := context.WithTimeout(m.ctx, d.timeout)
		err := d.sender.Send(ctx, m.to, m.subject, m.body)
		cancel()
		if err != nil {
			d.logger.Warn("email delivery failed", "provider", d.sender.ProviderID(), "err", err)
			continue
		}
		d.logger.Debug("email delivered", "provider", d.sender.ProviderID())
	}
}
