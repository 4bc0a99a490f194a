package bridge

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/avogel/chase-bridge/internal/engine"
	"github.com/avogel/chase-bridge/internal/protocol"
)

// startSession runs a full session over pipes and returns the client half
// plus the channel Run's result lands on.
func startSession(t *testing.T, id Identity, script func(engine.Command) engine.Response) (net.Conn, *bufio.Reader, *fakeEngine, chan error) {
	t.Helper()
	d, fe := startFakeEngine(t, script)

	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	sess := NewSession(server, bufio.NewReader(server), d, id, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()
	return client, bufio.NewReader(client), fe, done
}

func TestSession_RequestEverythingRoundTrip(t *testing.T) {
	client, clientR, _, _ := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	writeRequest(t, client, protocol.Request{Type: protocol.ReqRequestEverything})

	n := readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyEverything, n.Type)
	require.Equal(t, protocol.GameRunner, n.Everything.State)
	require.Equal(t, uint64(51), n.Everything.You)
}

func TestSession_SilentAcknowledgementsProduceNothing(t *testing.T) {
	client, clientR, fe, _ := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	loc := protocol.LatLon{Lat: 47.4, Lon: 8.5}
	writeRequest(t, client, protocol.Request{Type: protocol.ReqLocation, Location: &loc})

	cmd := fe.recvCommand(t, time.Second)
	require.Equal(t, engine.ActSendLocation, cmd.Action.Type)
	require.Equal(t, uint64(51), cmd.Action.Player)

	// a state request afterwards is answered first: the location update
	// produced no notification of its own
	writeRequest(t, client, protocol.Request{Type: protocol.ReqRequestEverything})
	n := readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyEverything, n.Type)
}

func TestSession_BroadcastReachesClient(t *testing.T) {
	client, clientR, fe, _ := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	loc := protocol.LatLon{Lat: 46.9, Lon: 7.4}
	fe.push(t, engine.Broadcast{Type: engine.BcastLocation, Team: 3, Location: &loc})

	n := readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyLocation, n.Type)
	require.Equal(t, 3, n.Team)
	require.Equal(t, &loc, n.Location)
}

func TestSession_PlayerDeletedTearsDown(t *testing.T) {
	_, clientR, fe, done := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	fe.push(t, engine.Broadcast{Type: engine.BcastPlayerDeleted, Player: 51})

	select {
	case err := <-done:
		require.ErrorIs(t, err, errIdentityInvalidated)
	case <-time.After(time.Second):
		t.Fatalf("session did not tear down")
	}

	// no further notifications: the client side sees the stream end
	_, err := protocol.ReadNotification(clientR)
	require.Error(t, err)
}

func TestSession_ClientHangupTearsDown(t *testing.T) {
	client, _, _, done := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	require.NoError(t, client.Close())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatalf("session did not tear down")
	}
}

func TestSession_UndecodableFrameIsFatal(t *testing.T) {
	client, _, _, done := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	// valid framing, wrong schema version
	require.NoError(t, protocol.WriteFrame(client, []byte(`{"v":99,"type":"Ping"}`)))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatalf("session did not tear down")
	}
}

func TestSession_DeferredPictureDispatch(t *testing.T) {
	client, clientR, fe, _ := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	writeRequest(t, client, protocol.Request{
		Type:    protocol.ReqUploadTeamPicture,
		Picture: pngBytes(t),
	})
	// the relay loop keeps serving while the decode runs
	writeRequest(t, client, protocol.Request{Type: protocol.ReqRequestEverything})

	n := readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyEverything, n.Type)

	// both commands reached the engine, in whichever order
	seen := map[engine.ActionType]bool{}
	for i := 0; i < 2; i++ {
		cmd := fe.recvCommand(t, time.Second)
		seen[cmd.Action.Type] = true
	}
	require.True(t, seen[engine.ActUploadTeamPicture])
	require.True(t, seen[engine.ActGetState])
}

func TestSession_ShutdownDeliversFarewellBeforeClosing(t *testing.T) {
	d, _ := startFakeEngine(t, stateScript(threeTeams(), &engine.Game{}))
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	sess := NewSession(server, bufio.NewReader(server), d,
		Identity{Player: 51, Session: 12, Team: 5}, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()

	sess.Shutdown()

	clientR := bufio.NewReader(client)
	n := readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyBecomeShutDown, n.Type)

	select {
	case err := <-done:
		require.ErrorIs(t, err, errBridgeStopping)
	case <-time.After(time.Second):
		t.Fatalf("session did not tear down after the farewell")
	}

	// the farewell is the last thing on the wire
	_, err := protocol.ReadNotification(clientR)
	require.Error(t, err)
}

func TestSession_ShutdownFlushesQueuedNotifications(t *testing.T) {
	d, _ := startFakeEngine(t, stateScript(threeTeams(), &engine.Game{}))
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	sess := NewSession(server, bufio.NewReader(server), d,
		Identity{Player: 51, Session: 12, Team: 5}, zaptest.NewLogger(t))
	loc := protocol.LatLon{Lat: 47.37, Lon: 8.54}
	sess.outbox <- protocol.Notification{Type: protocol.NotifyLocation, Team: 3, Location: &loc}
	sess.Shutdown()

	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()

	clientR := bufio.NewReader(client)
	n := readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyLocation, n.Type)

	n = readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyBecomeShutDown, n.Type)
}

func TestSession_InvalidPictureOnlyCostsThatRequest(t *testing.T) {
	client, clientR, _, done := startSession(t,
		Identity{Player: 51, Session: 12, Team: 5},
		stateScript(threeTeams(), &engine.Game{}))

	writeRequest(t, client, protocol.Request{
		Type:    protocol.ReqUploadPlayerPicture,
		Picture: []byte("not an image"),
	})
	writeRequest(t, client, protocol.Request{Type: protocol.ReqRequestEverything})

	n := readNotification(t, client, clientR, time.Second)
	require.Equal(t, protocol.NotifyEverything, n.Type)

	select {
	case err := <-done:
		t.Fatalf("session ended unexpectedly: %v", err)
	default:
	}
}
