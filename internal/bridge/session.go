package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avogel/chase-bridge/internal/engine"
	"github.com/avogel/chase-bridge/internal/protocol"
)

// shutdownGrace bounds how long a stopping bridge waits on a client socket.
const shutdownGrace = 5 * time.Second

// errBridgeStopping ends a session that delivered its shutdown farewell.
var errBridgeStopping = errors.New("bridge stopping")

// Session relays between one authenticated client connection and the engine.
// Three loops run concurrently: inbound (client requests → engine commands →
// response notifications), broadcasts (engine pushes → filtered
// notifications) and outbound (notification queue → client socket). The
// whole session tears down the moment any loop stops.
type Session struct {
	id     Identity
	conn   net.Conn
	reader *bufio.Reader
	eng    *engine.Dispatcher
	outbox chan protocol.Notification
	log    *zap.Logger

	shutdown chan struct{}
	shutOnce sync.Once
}

func NewSession(conn net.Conn, reader *bufio.Reader, eng *engine.Dispatcher, id Identity, log *zap.Logger) *Session {
	return &Session{
		id:       id,
		conn:     conn,
		reader:   reader,
		eng:      eng,
		outbox:   make(chan protocol.Notification, 32),
		log:      log,
		shutdown: make(chan struct{}),
	}
}

// Run relays until the first loop terminates, then cancels the rest and
// releases the sockets and the engine link. It always returns a non-nil
// reason; a client hanging up is as terminal as an I/O failure.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// unblocks conn reads/writes and in-flight engine round trips once any
	// loop ends or the parent is cancelled
	g.Go(func() error {
		<-ctx.Done()
		return multierr.Append(s.conn.Close(), s.eng.Close())
	})

	g.Go(func() error { return s.inbound(ctx, g) })
	g.Go(func() error { return s.relayBroadcasts(ctx) })
	g.Go(func() error { return s.outbound(ctx) })

	return g.Wait()
}

// inbound reads client requests in arrival order. Picture-bearing requests
// hand their payload decode to a separate goroutine so a slow decode never
// stalls the loop; their engine dispatch may therefore overtake later,
// lighter requests.
func (s *Session) inbound(ctx context.Context, g *errgroup.Group) error {
	for {
		req, err := protocol.ReadRequest(s.reader)
		if err != nil {
			return fmt.Errorf("client read: %w", err)
		}

		if isPictureRequest(req.Type) {
			g.Go(func() error { return s.dispatchPicture(ctx, req) })
			continue
		}

		cmd, ok := toEngineCommand(req, s.id)
		if !ok {
			s.log.Warn("dropping unusable client request", zap.String("type", string(req.Type)))
			continue
		}
		if err := s.roundTrip(ctx, cmd); err != nil {
			return err
		}
	}
}

// dispatchPicture is the deferred half of a picture-bearing request: decode
// and validate off the relay loop, then do the usual round trip. A payload
// that fails validation only costs that one request.
func (s *Session) dispatchPicture(ctx context.Context, req protocol.Request) error {
	cmd, err := pictureCommand(req, s.id)
	if err != nil {
		s.log.Warn("dropping picture request", zap.String("type", string(req.Type)), zap.Error(err))
		return nil
	}
	return s.roundTrip(ctx, cmd)
}

// roundTrip sends one command and enqueues the resulting notification, if
// the response maps to one.
func (s *Session) roundTrip(ctx context.Context, cmd engine.Command) error {
	resp, err := s.eng.Send(ctx, cmd)
	if err != nil {
		return fmt.Errorf("engine round trip: %w", err)
	}
	n, ok := toNotification(resp, s.id, s.log)
	if !ok {
		return nil
	}
	return s.enqueue(ctx, n)
}

func (s *Session) relayBroadcasts(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-s.eng.Broadcasts():
			if !ok {
				return fmt.Errorf("engine broadcasts: %w", engine.ErrClosed)
			}
			n, relevant, err := s.filterBroadcast(ctx, b)
			if err != nil {
				return err
			}
			if !relevant {
				continue
			}
			if err := s.enqueue(ctx, n); err != nil {
				return err
			}
		}
	}
}

// outbound is the only writer on the client socket; notifications go out in
// enqueue order.
func (s *Session) outbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdown:
			return s.farewell()
		case n := <-s.outbox:
			if err := protocol.WriteNotification(s.conn, n); err != nil {
				return fmt.Errorf("client write: %w", err)
			}
		}
	}
}

// farewell flushes what is already queued, tells the client the bridge is
// going away and ends the session. The socket deadline set by Shutdown bounds
// how long a dead client can hold this up.
func (s *Session) farewell() error {
	for {
		select {
		case n := <-s.outbox:
			if err := protocol.WriteNotification(s.conn, n); err != nil {
				return fmt.Errorf("client write: %w", err)
			}
		default:
			bye := protocol.Notification{Type: protocol.NotifyBecomeShutDown}
			if err := protocol.WriteNotification(s.conn, bye); err != nil {
				return fmt.Errorf("client write: %w", err)
			}
			return errBridgeStopping
		}
	}
}

func (s *Session) enqueue(ctx context.Context, n protocol.Notification) error {
	select {
	case s.outbox <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown makes the session deliver a BecomeShutDown to its client and then
// tear itself down. The deadline covers any write already in flight, so a
// stuck client cannot delay a stopping bridge past the grace period.
func (s *Session) Shutdown() {
	s.shutOnce.Do(func() {
		s.conn.SetDeadline(time.Now().Add(shutdownGrace))
		close(s.shutdown)
	})
}
