package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/avogel/chase-bridge/internal/protocol"
)

// SendOnce dials the engine, performs a single correlated round trip and
// closes. Broadcasts arriving on the short-lived connection are ignored.
// Used by the picture ingestion path, which has no session to attach to.
func SendOnce(ctx context.Context, addr string, cmd Command) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Response{}, fmt.Errorf("dialing engine: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Response{}, err
		}
	} else {
		// one-shot round trips should never hang a listener goroutine
		if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
			return Response{}, err
		}
	}

	id := uuid.NewString()
	payload, err := json.Marshal(frame{ID: id, Command: &cmd})
	if err != nil {
		return Response{}, err
	}
	if err := protocol.WriteFrame(conn, payload); err != nil {
		return Response{}, fmt.Errorf("engine write: %w", err)
	}

	r := bufio.NewReader(conn)
	for {
		payload, err := protocol.ReadFrame(r)
		if err != nil {
			return Response{}, fmt.Errorf("engine read: %w", err)
		}
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			return Response{}, fmt.Errorf("undecodable engine frame: %w", err)
		}
		if f.Response != nil && f.ID == id {
			return *f.Response, nil
		}
	}
}
