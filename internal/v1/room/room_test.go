package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor-chat/parlor/internal/v1/broadcast"
	"github.com/parlor-chat/parlor/internal/v1/wire"
)

func recvOne(t *testing.T, sub *broadcast.Subscription) wire.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := sub.Recv(ctx)
	require.NoError(t, err)
	return ev
}

func TestJoin_FirstSessionBroadcastsJoined(t *testing.T) {
	r := New(Metadata{Name: "rust", Description: "Talk about Rust"})

	// An observer joins first so it can watch the second join. The
	// subscription is handed out before the participation event is sent, so
	// the observer sees its own join too.
	obsSub, obsHandle, _ := r.Join(SessionAndUser{SessionID: "s0", UserID: "observer"})
	defer r.Leave(obsHandle)
	defer obsSub.Close()
	assert.Equal(t,
		wire.RoomParticipation{Room: "rust", UserID: "observer", Status: wire.StatusJoined},
		recvOne(t, obsSub))

	_, handle, users := r.Join(SessionAndUser{SessionID: "s1", UserID: "u1"})
	defer r.Leave(handle)

	assert.ElementsMatch(t, []string{"observer", "u1"}, users)

	ev := recvOne(t, obsSub)
	assert.Equal(t, wire.RoomParticipation{Room: "rust", UserID: "u1", Status: wire.StatusJoined}, ev)
}

func TestJoin_SnapshotIncludesJoiner(t *testing.T) {
	r := New(Metadata{Name: "rust"})

	_, handle, users := r.Join(SessionAndUser{SessionID: "s1", UserID: "u1"})
	defer r.Leave(handle)

	assert.Equal(t, []string{"u1"}, users)
	assert.Equal(t, []string{"u1"}, r.UniqueUserIDs())
}

func TestJoin_SecondSessionSameUserIsSilent(t *testing.T) {
	r := New(Metadata{Name: "rust"})

	obsSub, obsHandle, _ := r.Join(SessionAndUser{SessionID: "s0", UserID: "observer"})
	defer r.Leave(obsHandle)
	defer obsSub.Close()
	_ = recvOne(t, obsSub) // own joined event

	_, h1, _ := r.Join(SessionAndUser{SessionID: "s1", UserID: "u1"})
	_, h2, _ := r.Join(SessionAndUser{SessionID: "s2", UserID: "u1"})

	// Exactly one joined event for u1 across both sessions.
	ev := recvOne(t, obsSub)
	assert.Equal(t, wire.RoomParticipation{Room: "rust", UserID: "u1", Status: wire.StatusJoined}, ev)

	// The user stays present until the last session leaves.
	r.Leave(h1)
	assert.ElementsMatch(t, []string{"observer", "u1"}, r.UniqueUserIDs())

	r.Leave(h2)
	assert.ElementsMatch(t, []string{"observer"}, r.UniqueUserIDs())

	ev = recvOne(t, obsSub)
	assert.Equal(t, wire.RoomParticipation{Room: "rust", UserID: "u1", Status: wire.StatusLeft}, ev)
}

func TestLeave_ConsumedHandleIsNoOp(t *testing.T) {
	r := New(Metadata{Name: "rust"})

	_, handle, _ := r.Join(SessionAndUser{SessionID: "s1", UserID: "u1"})
	r.Leave(handle)
	r.Leave(handle)

	assert.Empty(t, r.UniqueUserIDs())
}

func TestSendMessage_BroadcastIncludesSender(t *testing.T) {
	r := New(Metadata{Name: "rust"})

	subA, hA, _ := r.Join(SessionAndUser{SessionID: "sA", UserID: "alice"})
	defer r.Leave(hA)
	defer subA.Close()
	_ = recvOne(t, subA) // own joined event

	subB, hB, _ := r.Join(SessionAndUser{SessionID: "sB", UserID: "bob"})
	defer r.Leave(hB)
	defer subB.Close()
	_ = recvOne(t, subB) // own joined event

	// A observes B's join first.
	_ = recvOne(t, subA)

	hA.SendMessage("hi")

	want := wire.UserMessage{Room: "rust", UserID: "alice", Content: "hi"}
	assert.Equal(t, want, recvOne(t, subA))
	assert.Equal(t, want, recvOne(t, subB))
}

func TestSendMessage_AfterLeaveIsNoOp(t *testing.T) {
	r := New(Metadata{Name: "rust"})

	sub, observer, _ := r.Join(SessionAndUser{SessionID: "s0", UserID: "observer"})
	defer r.Leave(observer)
	defer sub.Close()
	_ = recvOne(t, sub) // own joined event

	_, handle, _ := r.Join(SessionAndUser{SessionID: "s1", UserID: "u1"})
	_ = recvOne(t, sub) // u1 joined
	r.Leave(handle)
	_ = recvOne(t, sub) // u1 left

	handle.SendMessage("should vanish")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := sub.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirectory_LookupAndOrder(t *testing.T) {
	metas := []Metadata{
		{Name: "rust", Description: "Talk about Rust"},
		{Name: "go", Description: "Talk about Go"},
	}
	d, err := NewDirectory(metas)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Len())
	assert.Equal(t, metas, d.Metadatas())
	assert.Equal(t, []wire.RoomDetail{
		{Name: "rust", Description: "Talk about Rust"},
		{Name: "go", Description: "Talk about Go"},
	}, d.Details())

	r, ok := d.Lookup("rust")
	require.True(t, ok)
	assert.Equal(t, "rust", r.Name())

	_, ok = d.Lookup("cobol")
	assert.False(t, ok)
}

func TestDirectory_DuplicateNamesRejected(t *testing.T) {
	_, err := NewDirectory([]Metadata{
		{Name: "rust"},
		{Name: "rust"},
	})
	assert.Error(t, err)
}
