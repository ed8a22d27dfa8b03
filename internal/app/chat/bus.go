/*
Package chat contains the core logic for the group chat: the broadcast bus that
fans events out to every connected session, the per-client session state
machine, and the websocket client that drives it.
*/
package chat

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"lobbychat/internal/pkg/logx"
)

var (
	// ErrAlreadySubscribed is returned when a subscriber id is already registered.
	ErrAlreadySubscribed = errors.New("subscriber already registered")

	// ErrBusClosed is returned by Subscribe after Close.
	ErrBusClosed = errors.New("bus closed")
)

// Subscription is one subscriber's queue of events, in publish order.
// Published events go to an unbounded backlog and a forwarding goroutine moves
// them to Events(), so a slow reader delays its own events without losing any.
type Subscription struct {
	// ID is the subscriber id given to Subscribe.
	ID string

	events chan Event

	// mu guards pending.
	mu      sync.Mutex
	pending []Event

	// wake is signalled after each push; done is closed when the subscription is removed.
	wake chan struct{}
	done chan struct{}
}

func newSubscription(id string, buffer int) *Subscription {
	sub := &Subscription{
		ID:     id,
		events: make(chan Event, buffer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go sub.forward()
	return sub
}

// Events returns the receive side of the queue. It is closed once the
// subscription is removed by Unsubscribe or Close; events still in the backlog
// at that point may be discarded.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// push appends ev to the backlog and returns the backlog length.
func (s *Subscription) push(ev Event) int {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	n := len(s.pending)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return n
}

// stop ends forwarding. Callers hold the bus write lock, so it runs once per subscription.
func (s *Subscription) stop() {
	close(s.done)
}

func (s *Subscription) forward() {
	defer close(s.events)

	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, ev := range batch {
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

// Bus is the process-wide publish/subscribe fan-out. Every event reaches every
// subscriber registered at publish time, including the publisher.
type Bus struct {
	// subs holds the current subscribers keyed by id.
	subs map[string]*Subscription

	// buffer is the capacity of each subscriber's Events channel. A backlog
	// reaching this length is logged.
	buffer int

	closed bool

	// mu guards subs and closed. Publish holds the read lock while pushing, and
	// subscriptions are only stopped under the write lock, so no push follows a stop.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewBus returns an empty bus whose subscriber channels hold buffer events each.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1
	}

	return &Bus{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
		logger: logx.Component("bus"),
	}
}

// Subscribe registers id and returns its queue. The caller must drain
// Events() and eventually call Unsubscribe.
func (b *Bus) Subscribe(id string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	if _, ok := b.subs[id]; ok {
		return nil, ErrAlreadySubscribed
	}

	sub := newSubscription(id, b.buffer)
	b.subs[id] = sub

	b.logger.Debug().Str("subscriber_id", id).Int("subscribers", len(b.subs)).Msg("Subscriber added.")
	return sub, nil
}

// SubscribeFunc subscribes id and calls handler for each event, in publish
// order, on a goroutine owned by the subscription. The goroutine exits once the
// subscription is removed.
func (b *Bus) SubscribeFunc(id string, handler func(Event)) (*Subscription, error) {
	sub, err := b.Subscribe(id)
	if err != nil {
		return nil, err
	}

	go func() {
		for ev := range sub.events {
			handler(ev)
		}
	}()

	return sub, nil
}

// Unsubscribe removes id and closes its queue. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}

	delete(b.subs, id)
	sub.stop()

	b.logger.Debug().Str("subscriber_id", id).Int("subscribers", len(b.subs)).Msg("Subscriber removed.")
}

// Publish enqueues ev for every current subscriber and returns how many that was.
// It never blocks and never drops: a slow subscriber's backlog grows instead.
func (b *Bus) Publish(ev Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subs {
		if backlog := sub.push(ev); backlog == b.buffer {
			b.logger.Warn().
				Str("subscriber_id", id).
				Str("event_id", ev.ID).
				Int("backlog", backlog).
				Msg("Subscriber is falling behind.")
		}
	}

	return len(b.subs)
}

// Len returns the number of current subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Close removes every subscriber and rejects further subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		sub.stop()
		delete(b.subs, id)
	}

	b.logger.Info().Msg("Bus closed.")
}
