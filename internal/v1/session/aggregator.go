// Package session ties one TCP connection to the rooms it participates in.
//
// The Aggregator multiplexes the broadcast subscriptions of every joined room
// onto a single bounded outbound channel, one forwarding goroutine per room.
// The driver (driver.go) owns the connection itself: it dispatches inbound
// commands to the aggregator and pumps the outbound channel to the socket.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/parlor-chat/parlor/internal/v1/broadcast"
	"github.com/parlor-chat/parlor/internal/v1/logging"
	"github.com/parlor-chat/parlor/internal/v1/metrics"
	"github.com/parlor-chat/parlor/internal/v1/room"
	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// OutboundCapacity bounds the per-session outbound event channel. Forwarders
// block when it is full, propagating backpressure to the room subscriptions,
// which absorb it by lagging.
const OutboundCapacity = 100

var (
	// ErrUnknownRoom reports a join_room for a room not in the directory.
	ErrUnknownRoom = errors.New("session: unknown room")
	// ErrAlreadyJoined reports a join_room for a room the session is in.
	ErrAlreadyJoined = errors.New("session: already joined room")
)

// joinedRoom pairs the send handle for a room with the cancellation of its
// forwarding goroutine.
type joinedRoom struct {
	handle *room.SessionHandle
	cancel context.CancelFunc
}

// Aggregator owns a session's room participations. It is not safe for
// concurrent use: all methods are called from the single driver goroutine.
// Only the forwarding goroutines it spawns run concurrently, and they touch
// nothing but their own subscription and the outbound channel.
type Aggregator struct {
	sau    room.SessionAndUser
	dir    *room.Directory
	joined map[string]*joinedRoom

	outbound chan wire.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAggregator creates an aggregator for one session. The context bounds the
// lifetime of every forwarding goroutine it will spawn.
func NewAggregator(ctx context.Context, sau room.SessionAndUser, dir *room.Directory) *Aggregator {
	actx, cancel := context.WithCancel(ctx)
	return &Aggregator{
		sau:      sau,
		dir:      dir,
		joined:   make(map[string]*joinedRoom),
		outbound: make(chan wire.Event, OutboundCapacity),
		ctx:      actx,
		cancel:   cancel,
	}
}

// Outbound is the single ordered stream of events for this session, merged
// from every joined room's broadcast.
func (a *Aggregator) Outbound() <-chan wire.Event {
	return a.outbound
}

// HandleCommand applies one client command. join_room errors are returned for
// the caller to log; by reference behaviour they produce no wire-visible
// reply. send_message and leave_room for rooms the session has not joined are
// silently ignored. Quit is driver-owned and ignored here.
func (a *Aggregator) HandleCommand(cmd wire.Command) error {
	switch c := cmd.(type) {
	case wire.JoinRoom:
		return a.joinRoom(c.Room)
	case wire.SendMessage:
		if jr, ok := a.joined[c.Room]; ok {
			jr.handle.SendMessage(c.Content)
		}
		return nil
	case wire.LeaveRoom:
		if jr, ok := a.joined[c.Room]; ok {
			delete(a.joined, c.Room)
			a.cleanup(jr)
		}
		return nil
	default:
		return nil
	}
}

// joinRoom subscribes the session to a room. The user_joined_room reply is
// enqueued before the forwarding goroutine starts, so it precedes every
// broadcast event from that room on the outbound stream.
func (a *Aggregator) joinRoom(name string) error {
	if _, ok := a.joined[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyJoined, name)
	}

	r, ok := a.dir.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, name)
	}

	sub, handle, users := r.Join(a.sau)

	reply := wire.UserJoinedRoom{Room: name, Users: users}
	select {
	case a.outbound <- reply:
	case <-a.ctx.Done():
		// Session is shutting down; undo the join.
		sub.Close()
		r.Leave(handle)
		return a.ctx.Err()
	}

	fctx, fcancel := context.WithCancel(a.ctx)
	a.wg.Add(1)
	go a.forward(fctx, name, sub)

	a.joined[name] = &joinedRoom{handle: handle, cancel: fcancel}
	return nil
}

// forward pumps events from one room's broadcast subscription onto the
// outbound channel until cancelled. Lag is recoverable: the subscription has
// already repositioned to the oldest retained event, so the forwarder counts
// the loss and keeps going.
func (a *Aggregator) forward(ctx context.Context, roomName string, sub *broadcast.Subscription) {
	defer a.wg.Done()
	defer sub.Close()

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lag *broadcast.LagError
			if errors.As(err, &lag) {
				metrics.BroadcastLagDrops.WithLabelValues(roomName).Add(float64(lag.Missed))
				logging.Warn(ctx, "session lagged behind room broadcast",
					zap.String("room", roomName),
					zap.Uint64("missed", lag.Missed),
					zap.String("session_id", a.sau.SessionID))
				continue
			}
			return
		}

		select {
		case a.outbound <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// cleanup stops the room's forwarding goroutine and leaves the room. A
// directory miss here would mean the handle outlived its room, which cannot
// happen while rooms are static; it is logged and skipped rather than fatal.
func (a *Aggregator) cleanup(jr *joinedRoom) {
	jr.cancel()

	r, ok := a.dir.Lookup(jr.handle.Room())
	if !ok {
		logging.Error(a.ctx, "joined room missing from directory during cleanup",
			zap.String("room", jr.handle.Room()))
		return
	}
	r.Leave(jr.handle)
}

// LeaveAll leaves every joined room, in unspecified order. Idempotent: a
// second call finds no joined rooms and does nothing.
func (a *Aggregator) LeaveAll() {
	for name, jr := range a.joined {
		delete(a.joined, name)
		a.cleanup(jr)
	}
}

// Close cancels every forwarding goroutine and waits for them to exit. It
// does not leave rooms; the shutdown path skips that on purpose, and the
// disconnect paths call LeaveAll first.
func (a *Aggregator) Close() {
	a.cancel()
	a.wg.Wait()
}
