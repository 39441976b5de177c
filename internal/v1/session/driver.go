package session

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parlor-chat/parlor/internal/v1/logging"
	"github.com/parlor-chat/parlor/internal/v1/metrics"
	"github.com/parlor-chat/parlor/internal/v1/room"
	"github.com/parlor-chat/parlor/internal/v1/transport"
	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// inbound carries one read result from the reader goroutine to the driver
// loop: either a decoded command or a recoverable decode error.
type inbound struct {
	cmd wire.Command
	err error
}

// newSessionID returns a globally unique session identifier.
func newSessionID() string {
	return uuid.NewString()
}

// newUserID returns an anonymous user identifier. Shorter than a session id;
// uniqueness at this scale is enough and the value is user-visible in chat.
func newUserID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Serve drives one accepted connection until it ends: client disconnect,
// client quit, a transport failure, or server shutdown via ctx. On every exit
// path except shutdown the session leaves all joined rooms; on shutdown the
// whole process is exiting, so there is nobody left to tell.
func Serve(ctx context.Context, conn net.Conn, dir *room.Directory) {
	defer conn.Close()

	sessionID := newSessionID()
	userID := newUserID()
	lctx := logging.WithSession(ctx, sessionID, userID)

	metrics.IncSession()
	defer metrics.DecSession()
	logging.Info(lctx, "session started", zap.String("remote", conn.RemoteAddr().String()))

	writer := transport.NewEventWriter(conn)
	reader := transport.NewCommandReader(conn)

	if err := writer.Write(wire.LoginSuccessful{
		SessionID: sessionID,
		UserID:    userID,
		Rooms:     dir.Details(),
	}); err != nil {
		logging.Warn(lctx, "failed to write login reply", zap.Error(err))
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	agg := NewAggregator(sctx, room.SessionAndUser{SessionID: sessionID, UserID: userID}, dir)
	defer agg.Close()

	commands := readCommands(sctx, reader)

	for {
		// Shutdown takes priority over ready commands or events.
		select {
		case <-ctx.Done():
			logging.Info(lctx, "session closed by server shutdown")
			return
		default:
		}

		select {
		case <-ctx.Done():
			logging.Info(lctx, "session closed by server shutdown")
			return

		case in, ok := <-commands:
			if !ok {
				// EOF or a fatal read error; either way the client is gone.
				logging.Info(lctx, "client disconnected")
				agg.LeaveAll()
				return
			}
			if in.err != nil {
				logging.Warn(lctx, "dropping malformed record", zap.Error(in.err))
				continue
			}
			if _, isQuit := in.cmd.(wire.Quit); isQuit {
				logging.Info(lctx, "client quit")
				metrics.CommandsProcessed.WithLabelValues(wire.TagQuit, "ok").Inc()
				agg.LeaveAll()
				return
			}
			tag := wire.CommandTag(in.cmd)
			if err := agg.HandleCommand(in.cmd); err != nil {
				// Unknown or duplicate rooms produce no wire-visible reply;
				// the command is absorbed and the session carries on.
				logging.Warn(lctx, "command rejected", zap.String("command", tag), zap.Error(err))
				metrics.CommandsProcessed.WithLabelValues(tag, "rejected").Inc()
			} else {
				metrics.CommandsProcessed.WithLabelValues(tag, "ok").Inc()
			}

		case ev := <-agg.Outbound():
			if err := writer.Write(ev); err != nil {
				logging.Warn(lctx, "transport failed, closing session", zap.Error(err))
				agg.LeaveAll()
				return
			}
		}
	}
}

// readCommands pumps the inbound half of the connection into a channel so the
// driver can select over commands, outbound events and shutdown together.
// The channel closes on EOF or a fatal read error; recoverable decode errors
// are passed through as elements.
func readCommands(ctx context.Context, reader *transport.CommandReader) <-chan inbound {
	commands := make(chan inbound)

	go func() {
		defer close(commands)
		for {
			cmd, err := reader.Next()
			if err != nil {
				var decodeErr *wire.DecodeError
				if errors.As(err, &decodeErr) {
					select {
					case commands <- inbound{err: err}:
						continue
					case <-ctx.Done():
						return
					}
				}
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
					logging.Warn(ctx, "read failed", zap.Error(err))
				}
				return
			}

			select {
			case commands <- inbound{cmd: cmd}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return commands
}
