// Command loadgen generates synthetic chat load: each simulated user connects,
// joins a rotating slice of rooms, then sends a message to each joined room in
// turn at a fixed cadence while draining everything the server broadcasts.
//
// Check your socket limits before running with large user counts.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/parlor-chat/parlor/internal/v1/catalog"
	"github.com/parlor-chat/parlor/internal/v1/transport"
	"github.com/parlor-chat/parlor/internal/v1/wire"
)

type options struct {
	addr         string
	users        int
	roomsPerUser int
	rampUp       time.Duration
	chatDelay    time.Duration
}

// rotator cycles through a list of room names forever.
type rotator struct {
	names   []string
	current int
}

func (r *rotator) next() string {
	name := r.names[r.current]
	r.current = (r.current + 1) % len(r.names)
	return name
}

// take returns the next n names as a fresh slice.
func (r *rotator) take(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.next())
	}
	return out
}

func main() {
	opts := options{}
	flag.StringVar(&opts.addr, "addr", "localhost:8080", "chat server address")
	flag.IntVar(&opts.users, "users", 100, "number of simulated users")
	flag.IntVar(&opts.roomsPerUser, "rooms-per-user", 5, "rooms each user joins")
	flag.DurationVar(&opts.rampUp, "ramp-up", 10*time.Second, "time over which users are spawned")
	flag.DurationVar(&opts.chatDelay, "chat-delay", 10*time.Second, "delay between messages per user")
	flag.Parse()

	if opts.users < 1 || opts.roomsPerUser < 1 {
		slog.Error("users and rooms-per-user must be at least 1")
		os.Exit(1)
	}

	rooms, err := catalog.Load()
	if err != nil {
		slog.Error("could not load room catalog", "error", err)
		os.Exit(1)
	}

	names := make([]string, len(rooms))
	for i, m := range rooms {
		names[i] = m.Name
	}
	if opts.roomsPerUser > len(names) {
		opts.roomsPerUser = len(names)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rot := &rotator{names: names}
	spawnInterval := opts.rampUp / time.Duration(opts.users)

	var wg sync.WaitGroup
	spawned := 0
spawn:
	for i := 0; i < opts.users; i++ {
		roomsToJoin := rot.take(opts.roomsPerUser)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runUser(ctx, opts, roomsToJoin); err != nil {
				slog.Warn("user exited with error", "error", err)
			}
		}()
		spawned++
		if spawned%100 == 0 {
			slog.Info("spawning users", "total", spawned)
		}

		select {
		case <-ctx.Done():
			break spawn
		case <-time.After(spawnInterval):
		}
	}

	slog.Info("all users spawned", "total", spawned)
	<-ctx.Done()
	wg.Wait()
	slog.Info("load generator exiting")
}

// runUser drives a single simulated user until ctx is cancelled or the server
// closes the connection.
func runUser(ctx context.Context, opts options, roomsToJoin []string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", opts.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	events := transport.NewEventReader(conn)
	cmds := transport.NewCommandWriter(conn)

	ev, err := events.Next()
	if err != nil {
		return err
	}
	if _, ok := ev.(wire.LoginSuccessful); !ok {
		return errors.New("server did not send login_successful first")
	}

	for _, name := range roomsToJoin {
		if err := cmds.Write(wire.JoinRoom{Room: name}); err != nil {
			return err
		}
	}

	chatCtx, cancelChat := context.WithCancel(ctx)
	defer cancelChat()
	go chat(chatCtx, cmds, roomsToJoin, opts.chatDelay)

	// Unblock the event reader on cancellation.
	stopRead := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopRead()

	// Drain events so the server never blocks on this session.
	for {
		if _, err := events.Next(); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			var decodeErr *wire.DecodeError
			if errors.As(err, &decodeErr) {
				continue
			}
			return err
		}
	}
}

// chat sends one message to each joined room in rotation, pausing delay
// between sends. The initial pause is randomized to spread messaging times
// across users.
func chat(ctx context.Context, cmds *transport.CommandWriter, rooms []string, delay time.Duration) {
	if delay > 0 {
		initial := time.Duration(rand.Int63n(int64(delay)) + 1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(initial):
		}
	}

	rot := &rotator{names: rooms}
	for {
		msg := wire.SendMessage{Room: rot.next(), Content: uuid.NewString()}
		if err := cmds.Write(msg); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
