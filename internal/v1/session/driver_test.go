package session

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor-chat/parlor/internal/v1/room"
	"github.com/parlor-chat/parlor/internal/v1/transport"
	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// testClient wraps the client half of a piped connection.
type testClient struct {
	conn   net.Conn
	events *transport.EventReader
	cmds   *transport.CommandWriter
}

// startSession runs Serve on one end of a pipe and returns the client end
// plus a channel closed when the driver exits.
func startSession(t *testing.T, ctx context.Context, dir *room.Directory) (*testClient, <-chan struct{}) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Serve(ctx, serverConn, dir)
	}()

	t.Cleanup(func() {
		clientConn.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("session driver did not exit")
		}
	})

	return &testClient{
		conn:   clientConn,
		events: transport.NewEventReader(clientConn),
		cmds:   transport.NewCommandWriter(clientConn),
	}, done
}

func (c *testClient) nextEvent(t *testing.T) wire.Event {
	t.Helper()
	type result struct {
		ev  wire.Event
		err error
	}
	got := make(chan result, 1)
	go func() {
		ev, err := c.events.Next()
		got <- result{ev, err}
	}()
	select {
	case r := <-got:
		require.NoError(t, r.err)
		return r.ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func (c *testClient) login(t *testing.T) wire.LoginSuccessful {
	t.Helper()
	ev := c.nextEvent(t)
	login, ok := ev.(wire.LoginSuccessful)
	require.True(t, ok, "first event must be login_successful, got %#v", ev)
	return login
}

func TestServe_Welcome(t *testing.T) {
	dir := testDirectory(t)
	client, _ := startSession(t, context.Background(), dir)

	login := client.login(t)
	assert.NotEmpty(t, login.SessionID)
	assert.NotEmpty(t, login.UserID)
	assert.Equal(t, dir.Details(), login.Rooms)
}

func TestServe_JoinReplyThenParticipation(t *testing.T) {
	dir := testDirectory(t)
	client, _ := startSession(t, context.Background(), dir)
	login := client.login(t)

	require.NoError(t, client.cmds.Write(wire.JoinRoom{Room: "rust"}))

	assert.Equal(t, wire.UserJoinedRoom{Room: "rust", Users: []string{login.UserID}}, client.nextEvent(t))
	assert.Equal(t, wire.RoomParticipation{Room: "rust", UserID: login.UserID, Status: wire.StatusJoined}, client.nextEvent(t))
}

func TestServe_UnknownRoomProducesNoReply(t *testing.T) {
	dir := testDirectory(t)
	client, _ := startSession(t, context.Background(), dir)
	client.login(t)

	require.NoError(t, client.cmds.Write(wire.JoinRoom{Room: "cobol"}))
	// A follow-up valid join still works and is the next event.
	require.NoError(t, client.cmds.Write(wire.JoinRoom{Room: "go"}))

	ev := client.nextEvent(t)
	assert.IsType(t, wire.UserJoinedRoom{}, ev)
	assert.Equal(t, "go", ev.(wire.UserJoinedRoom).Room)
}

func TestServe_MalformedRecordIsAbsorbed(t *testing.T) {
	dir := testDirectory(t)
	client, _ := startSession(t, context.Background(), dir)
	client.login(t)

	_, err := client.conn.Write([]byte("definitely not json\r\n"))
	require.NoError(t, err)

	require.NoError(t, client.cmds.Write(wire.JoinRoom{Room: "rust"}))
	assert.IsType(t, wire.UserJoinedRoom{}, client.nextEvent(t))
}

func TestServe_QuitLeavesJoinedRooms(t *testing.T) {
	dir := testDirectory(t)

	observer, _ := startSession(t, context.Background(), dir)
	obsLogin := observer.login(t)
	require.NoError(t, observer.cmds.Write(wire.JoinRoom{Room: "rust"}))
	observer.nextEvent(t) // reply
	observer.nextEvent(t) // own joined

	quitter, quitterDone := startSession(t, context.Background(), dir)
	quitLogin := quitter.login(t)
	require.NoError(t, quitter.cmds.Write(wire.JoinRoom{Room: "rust"}))
	quitter.nextEvent(t)
	quitter.nextEvent(t)

	assert.Equal(t,
		wire.RoomParticipation{Room: "rust", UserID: quitLogin.UserID, Status: wire.StatusJoined},
		observer.nextEvent(t))

	require.NoError(t, quitter.cmds.Write(wire.Quit{}))

	assert.Equal(t,
		wire.RoomParticipation{Room: "rust", UserID: quitLogin.UserID, Status: wire.StatusLeft},
		observer.nextEvent(t))

	select {
	case <-quitterDone:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not exit after quit")
	}

	r, _ := dir.Lookup("rust")
	assert.ElementsMatch(t, []string{obsLogin.UserID}, r.UniqueUserIDs())
}

func TestServe_DisconnectLeavesJoinedRooms(t *testing.T) {
	dir := testDirectory(t)

	client, done := startSession(t, context.Background(), dir)
	client.login(t)
	require.NoError(t, client.cmds.Write(wire.JoinRoom{Room: "rust"}))
	client.nextEvent(t)
	client.nextEvent(t)

	client.conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not exit after disconnect")
	}

	r, _ := dir.Lookup("rust")
	assert.Empty(t, r.UniqueUserIDs())
}

func TestServe_ShutdownSkipsLeaveAll(t *testing.T) {
	dir := testDirectory(t)
	ctx, cancel := context.WithCancel(context.Background())

	client, done := startSession(t, ctx, dir)
	client.login(t)
	require.NoError(t, client.cmds.Write(wire.JoinRoom{Room: "rust"}))
	client.nextEvent(t)
	client.nextEvent(t)

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not exit on shutdown")
	}

	// Shutdown does not run leaveAll: the registry still holds the session,
	// matching the reference semantics of tearing the process down whole.
	r, _ := dir.Lookup("rust")
	assert.Len(t, r.UniqueUserIDs(), 1)

	// No further events were written after shutdown.
	_, err := client.events.Next()
	assert.ErrorIs(t, err, io.EOF)
}
