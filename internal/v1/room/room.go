// Package room implements the chat room registry and fan-out: each Room owns
// one bounded broadcast channel and the bookkeeping of which users are
// present. Rooms never reach into sessions; sessions observe a room only
// through the broadcast subscription handed out by Join.
package room

import (
	"sync"

	"github.com/parlor-chat/parlor/internal/v1/broadcast"
	"github.com/parlor-chat/parlor/internal/v1/metrics"
	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// BroadcastCapacity is the per-room broadcast ring size. Subscribers that
// fall further behind than this lose the oldest events.
const BroadcastCapacity = 100

// SessionAndUser identifies one participation: the session and the logical
// user behind it.
type SessionAndUser struct {
	SessionID string
	UserID    string
}

// Metadata is the immutable identity of a room.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Room owns a broadcast channel and a user registry. All mutating operations
// hold the room lock so registry updates are observable before the
// participation event that announces them. Lock hold time is O(1) in the
// number of users; broadcast sends never block.
type Room struct {
	mu       sync.Mutex
	meta     Metadata
	ch       *broadcast.Channel
	registry *userRegistry
}

// New creates a room from its metadata with an empty registry.
func New(meta Metadata) *Room {
	return &Room{
		meta:     meta,
		ch:       broadcast.New(BroadcastCapacity),
		registry: newUserRegistry(),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string { return r.meta.Name }

// Metadata returns the room's immutable metadata.
func (r *Room) Metadata() Metadata { return r.meta }

// Join subscribes a session to the room. Atomically: register the session,
// broadcast a joined participation event if this is the user's first session
// here, and snapshot the unique users (including the joiner). The returned
// SessionHandle is the only way to send messages to the room and must be
// given back via Leave.
func (r *Room) Join(sau SessionAndUser) (*broadcast.Subscription, *SessionHandle, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := r.ch.Subscribe()
	handle := &SessionHandle{room: r.meta.Name, ch: r.ch, sau: sau}

	// A user with another live session in this room is already announced;
	// only the first session broadcasts.
	if r.registry.insert(sau) {
		metrics.RoomMembers.WithLabelValues(r.meta.Name).Inc()
		r.send(wire.RoomParticipation{
			Room:   r.meta.Name,
			UserID: sau.UserID,
			Status: wire.StatusJoined,
		})
	}

	return sub, handle, r.registry.uniqueUserIDs()
}

// Leave removes the handle's session from the room and consumes the handle.
// A left participation event is broadcast only when the user's last session
// leaves. Leaving with an already-consumed handle is a no-op.
func (r *Room) Leave(handle *SessionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle.ch == nil {
		return
	}
	handle.ch = nil

	if r.registry.remove(handle.sau) {
		metrics.RoomMembers.WithLabelValues(r.meta.Name).Dec()
		r.send(wire.RoomParticipation{
			Room:   r.meta.Name,
			UserID: handle.sau.UserID,
			Status: wire.StatusLeft,
		})
	}
}

// UniqueUserIDs returns a snapshot of the users currently in the room.
func (r *Room) UniqueUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.uniqueUserIDs()
}

// send publishes to the broadcast channel. Best-effort: subscribers that lag
// past the ring capacity miss events, and a send with no subscribers goes
// unobserved. Callers hold r.mu; the send itself never blocks.
func (r *Room) send(ev wire.Event) {
	r.ch.Send(ev)
	metrics.BroadcastsSent.WithLabelValues(r.meta.Name).Inc()
}

// SessionHandle binds one (session, user) pair to one room. It is handed out
// by Join and consumed by Leave; sending through a consumed handle is a
// no-op. The handle is owned by a single session goroutine.
type SessionHandle struct {
	room string
	ch   *broadcast.Channel
	sau  SessionAndUser
}

// Room returns the name of the room this handle belongs to.
func (h *SessionHandle) Room() string { return h.room }

// SendMessage broadcasts a user message to the room using the handle's
// identity. Best-effort: nothing is reported if no subscriber observes it.
func (h *SessionHandle) SendMessage(content string) {
	if h.ch == nil {
		return
	}
	h.ch.Send(wire.UserMessage{
		Room:    h.room,
		UserID:  h.sau.UserID,
		Content: content,
	})
	metrics.BroadcastsSent.WithLabelValues(h.room).Inc()
}
