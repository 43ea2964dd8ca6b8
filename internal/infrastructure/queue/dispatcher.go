package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/storefront-api/internal/core/domain"
	"github.com/99minutos/storefront-api/internal/infrastructure/mail"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ErrQueueFull is returned when the worker owning a recipient cannot accept
// another message.
var ErrQueueFull = errors.New("notification queue full")

// Dispatcher delivers notifications on a fixed set of workers. Messages for
// the same recipient always go to the same worker, so they are sent in order.
type Dispatcher struct {
	workers []chan domain.Notification
	sender  mail.Sender
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender mail.Sender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Notification, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Notify queues n for delivery without waiting for the send.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) error {
	select {
	case d.workers[d.shardIndex(n.To)] <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(recipient)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := d.sender.Send(ctx, n); err != nil {
				d.log.Error().Err(err).
					Str("kind", string(n.Kind)).
					Str("to", n.To).
					Int("worker_id", id).
					Msg("notification delivery failed")
				continue
			}
			d.log.Debug().Str("kind", string(n.Kind)).Int("worker_id", id).Msg("notification delivered")
		}
	}
}
