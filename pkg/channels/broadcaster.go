package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const minInputBuffer = 8

// subscriber holds a channel and its send timeout configuration.
type subscriber[T any] struct {
	ch       chan<- T
	timeout  time.Duration
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	if err := SendWithTimeout(s.ch, msg, s.timeout); err != nil {
		// a closed channel never comes back, anything else is just a drop
		s.dropped.Add(1)
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

// Broadcaster broadcasts messages from a single input channel to multiple subscriber channels.
// It owns the input channel and handles graceful shutdown via context cancellation.
//
// Each subscriber is given its own timeout to accept a message; a message it
// does not accept in time is dropped and counted in Stats. A closed
// subscriber channel is marked inactive and skipped from then on.
//
// On context cancellation, the input channel is closed and all remaining messages
// are drained to subscribers before shutdown completes. The sender must stop
// sending before that context is cancelled.
type Broadcaster[T any] struct {
	subscribers []*subscriber[T]
	input       chan T
	started     atomic.Bool
	wg          sync.WaitGroup
}

// NewBroadcaster creates an empty Broadcaster for messages of type T.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// SubscribeWithTimeout adds a channel that is given up to timeout to accept each message.
// Must be called before Run(). Not safe for concurrent use with Run().
func (b *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if ch == nil {
		return ErrNilChannel
	}

	if timeout <= 0 {
		return ErrBadTimeout
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ch: ch, timeout: timeout})

	return nil
}

// Run starts the broadcaster and returns the input channel for sending messages.
//
// The returned channel is owned by Broadcaster and will be closed on context cancellation.
// After closure, all remaining messages are drained to subscribers.
//
// Returns error if already started or no subscribers exist.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if len(b.subscribers) == 0 {
		return nil, fmt.Errorf("no subscribers available")
	}

	if !b.started.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("broadcaster already started")
	}

	b.input = make(chan T, max(len(b.subscribers)*2, minInputBuffer))

	b.wg.Go(func() {
		for msg := range b.input {
			for _, sub := range b.subscribers {
				sub.send(msg)
			}
		}
	})

	go func() {
		<-ctx.Done()
		close(b.input)
	}()

	return b.input, nil
}

// Wait blocks until the input channel has been closed and drained.
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

// SubscriberStats reports delivery health for one subscriber.
type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

// Stats returns per-subscriber stats in subscription order.
func (b *Broadcaster[T]) Stats() []SubscriberStats {
	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
