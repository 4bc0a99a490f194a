package bridge

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/avogel/chase-bridge/internal/engine"
	"github.com/avogel/chase-bridge/internal/protocol"
)

// engineFrame mirrors the dispatcher's wire envelope so tests can act as the
// engine end of the link.
type engineFrame struct {
	ID        string            `json:"id,omitempty"`
	Command   *engine.Command   `json:"command,omitempty"`
	Response  *engine.Response  `json:"response,omitempty"`
	Broadcast *engine.Broadcast `json:"broadcast,omitempty"`
}

// fakeEngine services the engine side of a dispatcher over a pipe, answering
// every command through a script function and recording what it saw.
type fakeEngine struct {
	conn   net.Conn
	reader *bufio.Reader
	script func(engine.Command) engine.Response
	cmds   chan engine.Command
}

func startFakeEngine(t *testing.T, script func(engine.Command) engine.Response) (*engine.Dispatcher, *fakeEngine) {
	t.Helper()
	bridgeSide, engineSide := net.Pipe()
	fe := &fakeEngine{
		conn:   engineSide,
		reader: bufio.NewReader(engineSide),
		script: script,
		cmds:   make(chan engine.Command, 16),
	}
	go fe.loop()

	d := engine.NewDispatcher(bridgeSide, zaptest.NewLogger(t))
	t.Cleanup(func() {
		d.Close()
		engineSide.Close()
	})
	return d, fe
}

func (f *fakeEngine) loop() {
	for {
		payload, err := protocol.ReadFrame(f.reader)
		if err != nil {
			return
		}
		var fr engineFrame
		if err := json.Unmarshal(payload, &fr); err != nil || fr.Command == nil {
			return
		}
		select {
		case f.cmds <- *fr.Command:
		default:
		}
		resp := f.script(*fr.Command)
		out, err := json.Marshal(engineFrame{ID: fr.ID, Response: &resp})
		if err != nil {
			return
		}
		if err := protocol.WriteFrame(f.conn, out); err != nil {
			return
		}
	}
}

// push injects an unsolicited broadcast. Frame writes on a pipe are atomic,
// so pushing concurrently with reply traffic is fine.
func (f *fakeEngine) push(t *testing.T, b engine.Broadcast) {
	t.Helper()
	out, err := json.Marshal(engineFrame{Broadcast: &b})
	if err != nil {
		t.Fatalf("marshaling broadcast: %v", err)
	}
	if err := protocol.WriteFrame(f.conn, out); err != nil {
		t.Fatalf("pushing broadcast: %v", err)
	}
}

// recvCommand waits for the next command the fake engine saw.
func (f *fakeEngine) recvCommand(t *testing.T, within time.Duration) engine.Command {
	t.Helper()
	select {
	case cmd := <-f.cmds:
		return cmd
	case <-time.After(within):
		t.Fatalf("timed out waiting for engine command")
		return engine.Command{} // unreachable
	}
}

// stateScript answers GetState with the given snapshot and everything else
// with Success.
func stateScript(teams []engine.Team, game *engine.Game) func(engine.Command) engine.Response {
	return func(cmd engine.Command) engine.Response {
		if cmd.Action.Type == engine.ActGetState {
			return engine.Response{Type: engine.RespState, Teams: teams, Game: game}
		}
		return engine.Response{Type: engine.RespSuccess}
	}
}

func threeTeams() []engine.Team {
	return []engine.Team{
		{ID: 3, Name: "alpha", Role: engine.RoleCatcher, Players: []engine.Player{{ID: 31, Name: "ada"}}},
		{ID: 5, Name: "bravo", Role: engine.RoleRunner, Players: []engine.Player{{ID: 51, Name: "ben"}}},
		{ID: 7, Name: "carol", Role: engine.RoleRunner, Players: []engine.Player{{ID: 71, Name: "cem"}}},
	}
}

// readNotification reads the next frame a session wrote to the client side,
// guarded by a deadline so tests never hang.
func readNotification(t *testing.T, conn net.Conn, r *bufio.Reader, within time.Duration) protocol.Notification {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(within)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	n, err := protocol.ReadNotification(r)
	if err != nil {
		t.Fatalf("reading notification: %v", err)
	}
	return n
}
