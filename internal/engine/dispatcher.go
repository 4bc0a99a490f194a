package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avogel/chase-bridge/internal/protocol"
)

// ErrClosed is returned by Send once the engine link is gone.
var ErrClosed = errors.New("engine connection closed")

// frame is the envelope on the engine link. Exactly one of Command, Response
// or Broadcast is set; replies echo the command's correlation id, broadcasts
// carry none.
type frame struct {
	ID        string     `json:"id,omitempty"`
	Command   *Command   `json:"command,omitempty"`
	Response  *Response  `json:"response,omitempty"`
	Broadcast *Broadcast `json:"broadcast,omitempty"`
}

type request struct {
	id    string
	cmd   Command
	reply chan Response
}

// Dispatcher owns one engine connection for the lifetime of a session. It is
// the single writer: concurrent callers enqueue through Send and a correlation
// token routes each reply back to its caller, so the inbound relay loop,
// broadcast refreshes and deferred picture dispatches never cross-deliver.
type Dispatcher struct {
	conn net.Conn
	log  *zap.Logger

	requests   chan request
	broadcasts chan Broadcast

	mu      sync.Mutex
	pending map[string]chan Response

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the engine and starts the dispatcher's read and write
// loops. Close the dispatcher to release the connection.
func Dial(ctx context.Context, addr string, log *zap.Logger) (*Dispatcher, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing engine: %w", err)
	}
	return NewDispatcher(conn, log), nil
}

// NewDispatcher runs a dispatcher over an established connection.
func NewDispatcher(conn net.Conn, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		conn: conn,
		log:  log,
		// Broadcasts buffer deep enough to ride out a consumer doing a
		// refresh round trip; overflow drops, it must never stall replies.
		requests:   make(chan request, 16),
		broadcasts: make(chan Broadcast, 64),
		pending:    make(map[string]chan Response),
		done:       make(chan struct{}),
	}
	go d.writeLoop()
	go d.readLoop()
	return d
}

// Send performs one correlated round trip. Safe for concurrent use.
func (d *Dispatcher) Send(ctx context.Context, cmd Command) (Response, error) {
	r := request{id: uuid.NewString(), cmd: cmd, reply: make(chan Response, 1)}

	d.mu.Lock()
	d.pending[r.id] = r.reply
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.pending, r.id)
		d.mu.Unlock()
	}()

	select {
	case d.requests <- r:
	case <-d.done:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-r.reply:
		return resp, nil
	case <-d.done:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Broadcasts returns the engine's push stream. The channel closes when the
// link ends. A consumer that falls behind loses broadcasts rather than
// blocking reply delivery.
func (d *Dispatcher) Broadcasts() <-chan Broadcast { return d.broadcasts }

// Close tears the link down, failing all in-flight Sends with ErrClosed.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		err = d.conn.Close()
	})
	return err
}

func (d *Dispatcher) writeLoop() {
	for {
		select {
		case <-d.done:
			return
		case r := <-d.requests:
			payload, err := json.Marshal(frame{ID: r.id, Command: &r.cmd})
			if err != nil {
				d.log.Error("encoding engine command", zap.Error(err))
				d.Close()
				return
			}
			if err := protocol.WriteFrame(d.conn, payload); err != nil {
				d.log.Debug("engine write failed", zap.Error(err))
				d.Close()
				return
			}
		}
	}
}

func (d *Dispatcher) readLoop() {
	defer close(d.broadcasts)
	defer d.Close()

	r := bufio.NewReader(d.conn)
	for {
		payload, err := protocol.ReadFrame(r)
		if err != nil {
			select {
			case <-d.done: // expected after Close
			default:
				d.log.Debug("engine read failed", zap.Error(err))
			}
			return
		}
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			d.log.Error("undecodable engine frame", zap.Error(err))
			return
		}
		switch {
		case f.Response != nil:
			d.mu.Lock()
			reply, ok := d.pending[f.ID]
			delete(d.pending, f.ID)
			d.mu.Unlock()
			if !ok {
				d.log.Warn("engine reply with unknown correlation id", zap.String("id", f.ID))
				continue
			}
			reply <- *f.Response
		case f.Broadcast != nil:
			select {
			case d.broadcasts <- *f.Broadcast:
			default:
				// blocking here would wedge reply delivery, and dropping an
				// identity revocation would leave the session running on a
				// stale identity; ending the link forces the session down
				if f.Broadcast.Type.InvalidatesIdentity() {
					d.log.Warn("broadcast backlog full on identity change, closing link",
						zap.String("broadcast", string(f.Broadcast.Type)))
					return
				}
				d.log.Warn("broadcast consumer too slow, dropping",
					zap.String("broadcast", string(f.Broadcast.Type)))
			}
		default:
			d.log.Warn("engine frame with no payload")
		}
	}
}
