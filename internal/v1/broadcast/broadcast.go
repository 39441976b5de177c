// Package broadcast provides a bounded multi-subscriber event channel.
//
// Every subscriber observes sends in order, but through a fixed-size ring: a
// subscriber that falls more than the ring capacity behind loses the oldest
// events and is told how many it missed. Sending never blocks, so one stuck
// subscriber cannot stall the publisher or its peers.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// ErrClosed is returned by Recv after Close has been called on the channel
// and all buffered events visible to the subscriber have been consumed.
var ErrClosed = errors.New("broadcast: channel closed")

// LagError reports that a subscriber fell behind and the ring overwrote
// events it had not read yet. The subscriber has been repositioned to the
// oldest retained event; the next Recv resumes from there.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("broadcast: subscriber lagged, missed %d events", e.Missed)
}

// Channel is a bounded broadcast sender. The zero value is not usable; create
// one with New.
type Channel struct {
	mu     sync.Mutex
	ring   []wire.Event
	cap    uint64
	head   uint64 // sequence number of the next event to be sent
	subs   int
	closed bool
	notify chan struct{} // closed and replaced on every Send
}

// New creates a broadcast channel retaining up to capacity events per
// subscriber.
func New(capacity int) *Channel {
	if capacity <= 0 {
		panic("broadcast: capacity must be positive")
	}
	return &Channel{
		ring:   make([]wire.Event, capacity),
		cap:    uint64(capacity),
		notify: make(chan struct{}),
	}
}

// Send publishes an event to every current subscriber. It never blocks: if a
// subscriber is more than the ring capacity behind, the event overwrites the
// oldest unread one and that subscriber observes a LagError. Returns the
// number of subscribers at the time of the send; a send with no subscribers
// is retained in the ring but typically unobserved.
func (c *Channel) Send(ev wire.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	c.ring[c.head%c.cap] = ev
	c.head++

	close(c.notify)
	c.notify = make(chan struct{})

	return c.subs
}

// Subscribers returns the current subscriber count.
func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs
}

// Close wakes all blocked subscribers. Buffered events remain readable;
// further Sends are discarded. Rooms live for the process lifetime, so this
// exists for tests and teardown paths rather than normal operation.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.notify)
}

// Subscribe registers a new subscriber positioned after the most recent send:
// it observes only events sent from this point on.
func (c *Channel) Subscribe() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs++
	return &Subscription{ch: c, next: c.head}
}

// Subscription is one subscriber's view of a Channel. It is not safe for
// concurrent use; each subscription belongs to a single receiving goroutine.
type Subscription struct {
	ch     *Channel
	next   uint64
	closed bool
}

// Recv returns the next event in send order. It blocks until an event is
// available, the context is cancelled, or the channel closes. When the
// subscriber has fallen more than the ring capacity behind it returns a
// *LagError and repositions to the oldest retained event.
func (s *Subscription) Recv(ctx context.Context) (wire.Event, error) {
	if s.closed {
		return nil, ErrClosed
	}

	for {
		s.ch.mu.Lock()

		if s.ch.head > s.next {
			if behind := s.ch.head - s.next; behind > s.ch.cap {
				missed := behind - s.ch.cap
				s.next = s.ch.head - s.ch.cap
				s.ch.mu.Unlock()
				return nil, &LagError{Missed: missed}
			}
			ev := s.ch.ring[s.next%s.ch.cap]
			s.next++
			s.ch.mu.Unlock()
			return ev, nil
		}

		if s.ch.closed {
			s.ch.mu.Unlock()
			return nil, ErrClosed
		}

		notify := s.ch.notify
		s.ch.mu.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close releases the subscription. Subsequent Recv calls return ErrClosed.
// Closing twice is a no-op.
func (s *Subscription) Close() {
	if s.closed {
		return
	}
	s.closed = true

	s.ch.mu.Lock()
	s.ch.subs--
	s.ch.mu.Unlock()
}
