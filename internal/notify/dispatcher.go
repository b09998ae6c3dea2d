package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// ErrQueueFull is returned by Enqueue when the dispatcher cannot accept more work.
var ErrQueueFull = errors.New("notify: queue is full")

// ErrDispatcherClosed is returned by Enqueue after Close.
var ErrDispatcherClosed = errors.New("notify: dispatcher closed")

const sendTimeout = 10 * time.Second

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "agileboard",
		Name:      "notifications_total",
		Help:      "Notifications by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

// Dispatcher delivers notifications on a bounded queue drained by a fixed
// set of workers, so request handlers never wait on a slow channel.
type Dispatcher struct {
	next    Notifier
	queue   chan Message
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
}

// NewDispatcher starts workers goroutines that deliver through next.
func NewDispatcher(next Notifier, queueSize, workers int) *Dispatcher {
	d := &Dispatcher{
		next:    next,
		queue:   make(chan Message, queueSize),
		timeout: sendTimeout,
	}
	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

// Enqueue schedules msg without blocking.
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		notificationsTotal.WithLabelValues(string(msg.Kind), "dropped").Inc()
		return ErrQueueFull
	}
}

// Send implements Notifier by enqueueing; a full queue drops the message
// with a warning.
func (d *Dispatcher) Send(_ context.Context, msg Message) error {
	if err := d.Enqueue(msg); err != nil {
		log.Warn().Err(err).Str("kind", string(msg.Kind)).Str("recipient", msg.Recipient).Msg("notify: dropping notification")
		return err
	}
	return nil
}

// Close stops accepting messages and waits for queued ones to drain or for
// ctx to end.
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
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.next.Send(ctx, msg)
		cancel()

		if err != nil {
			notificationsTotal.WithLabelValues(string(msg.Kind), "failed").Inc()
			log.Error().Err(err).Str("kind", string(msg.Kind)).Str("recipient", msg.Recipient).Msg("notify: delivery failed")
			continue
		}
		notificationsTotal.WithLabelValues(string(msg.Kind), "sent").Inc()
	}
}
