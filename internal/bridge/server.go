package bridge

import (
	"bufio"
	"context"
	"errors"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avogel/chase-bridge/internal/engine"
)

// Server accepts client connections and runs one Session per connection.
type Server struct {
	EngineAddr string
	Registry   *Registry
	Log        *zap.Logger
}

// Serve accepts until the listener closes or ctx is cancelled. The caller is
// expected to close the listener when ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handle(ctx, conn)
	}
}

// handle owns one client connection start to finish: engine dial, handshake,
// session relay, teardown.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	log := s.Log.With(zap.String("remote_addr", conn.RemoteAddr().String()))
	log.Info("client connected")

	eng, err := engine.Dial(ctx, s.EngineAddr, log)
	if err != nil {
		log.Error("engine unavailable", zap.Error(err))
		return
	}
	defer eng.Close()

	reader := bufio.NewReader(conn)
	id, err := Handshake(ctx, reader, conn, eng, log)
	if err != nil {
		log.Info("handshake ended", zap.Error(err))
		return
	}
	log = log.With(
		zap.Uint64("player", id.Player),
		zap.Uint64("session", id.Session),
		zap.Int("team", id.Team))

	sess := NewSession(conn, reader, eng, id, log)
	sid := uuid.NewString()
	s.Registry.Inbox() <- AddSession{ID: sid, Session: sess}
	defer func() { s.Registry.Inbox() <- RemoveSession{ID: sid} }()

	err = sess.Run(ctx)
	log.Info("session ended", zap.Error(err))
}
