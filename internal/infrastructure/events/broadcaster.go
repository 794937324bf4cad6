// Package events delivers operation results to event stream consumers.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"b2c-hub/internal/domain"
	"b2c-hub/metrics"
)

const (
	// DefaultReplaySize is the number of results kept for reconnecting consumers.
	DefaultReplaySize = 128
	subscriberBuffer  = 64
)

// ErrBroadcasterClosed is returned when publishing after Close.
var ErrBroadcasterClosed = errors.New("event broadcaster closed")

// Broadcaster fans operation results out to in-process subscribers and keeps
// a bounded replay log. Implements domain.EventSink.
type Broadcaster struct {
	mu     sync.Mutex
	replay []domain.OperationResult
	size   int
	subs   map[*Subscription]struct{}
	closed bool
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster remembering the last replaySize results.
func NewBroadcaster(replaySize int, logger *slog.Logger) *Broadcaster {
	if replaySize <= 0 {
		replaySize = DefaultReplaySize
	}
	return &Broadcaster{
		replay: make([]domain.OperationResult, 0, replaySize),
		size:   replaySize,
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscription receives results published after it was opened.
type Subscription struct {
	ch   chan domain.OperationResult
	b    *Broadcaster
	once sync.Once
}

// C is closed when the subscription ends.
func (s *Subscription) C() <-chan domain.OperationResult {
	return s.ch
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.detach(s)
}

// Publish records result and hands it to every subscriber. A subscriber
// whose buffer is full is disconnected and can resume with Last-Event-ID.
func (b *Broadcaster) Publish(ctx context.Context, result domain.OperationResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	if len(b.replay) == b.size {
		copy(b.replay, b.replay[1:])
		b.replay = b.replay[:b.size-1]
	}
	b.replay = append(b.replay, result)

	for sub := range b.subs {
		select {
		case sub.ch <- result:
		default:
			b.logger.WarnContext(ctx, "dropping slow event subscriber", "seq", result.Seq)
			b.detach(sub)
		}
	}
	return nil
}

// Subscribe opens a live subscription without replay.
func (b *Broadcaster) Subscribe() (*Subscription, error) {
	sub, _, err := b.subscribe(0, false)
	return sub, err
}

// SubscribeAfter opens a subscription and returns the remembered results
// whose seq is greater than afterSeq, oldest first.
func (b *Broadcaster) SubscribeAfter(afterSeq uint64) (*Subscription, []domain.OperationResult, error) {
	return b.subscribe(afterSeq, true)
}

func (b *Broadcaster) subscribe(afterSeq uint64, replay bool) (*Subscription, []domain.OperationResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrBroadcasterClosed
	}

	var backlog []domain.OperationResult
	if replay {
		for _, r := range b.replay {
			if r.Seq > afterSeq {
				backlog = append(backlog, r)
			}
		}
	}

	sub := &Subscription{ch: make(chan domain.OperationResult, subscriberBuffer), b: b}
	b.subs[sub] = struct{}{}
	metrics.SubscriberAdded()
	return sub, backlog, nil
}

// Subscribers returns the number of open subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription and rejects further publishes.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for sub := range b.subs {
		b.detach(sub)
	}
	return nil
}

// detach must be called with b.mu held.
func (b *Broadcaster) detach(sub *Subscription) {
	sub.once.Do(func() {
		delete(b.subs, sub)
		close(sub.ch)
		metrics.SubscriberRemoved()
	})
}
