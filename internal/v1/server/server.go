// Package server owns the TCP accept loop and graceful shutdown: one session
// driver per accepted connection, a single shutdown signal propagated through
// context cancellation, and a drain that waits for every driver to exit.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/parlor-chat/parlor/internal/v1/logging"
	"github.com/parlor-chat/parlor/internal/v1/room"
	"github.com/parlor-chat/parlor/internal/v1/session"
)

// Server accepts chat connections on a TCP address and serves them against an
// immutable room directory.
type Server struct {
	addr string
	dir  *room.Directory

	ln net.Listener
	wg sync.WaitGroup
}

// New creates a server for the given listen address, e.g. "0.0.0.0:8080".
func New(addr string, dir *room.Directory) *Server {
	return &Server{addr: addr, dir: dir}
}

// Listen binds the TCP listener. Split from Run so callers can fail fast on a
// bind error before wiring signal handling.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: binding %s: %w", s.addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listener address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Run accepts connections until ctx is cancelled, then stops accepting and
// waits for every session driver to exit. Drivers observe the same ctx as
// their shutdown signal. Binds the listener first if Listen was not called.
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	// Cancellation unblocks Accept by closing the listener.
	stop := context.AfterFunc(ctx, func() {
		_ = s.ln.Close()
	})
	defer stop()

	logging.Info(ctx, "chat server listening", zap.String("addr", s.ln.Addr().String()), zap.Int("rooms", s.dir.Len()))

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			logging.Warn(ctx, "accept failed", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			session.Serve(ctx, conn, s.dir)
		}()
	}

	logging.Info(ctx, "listener closed, draining sessions")
	s.wg.Wait()
	logging.Info(ctx, "all sessions exited")
	return nil
}
