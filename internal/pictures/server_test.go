package pictures

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/avogel/chase-bridge/internal/engine"
)

// uploadOnce plays one ingestion connection: write the envelope, close the
// write side, wait for the handler to finish. The captured engine commands
// land on the returned channel.
func uploadOnce(t *testing.T, env Envelope) chan engine.Command {
	t.Helper()
	sent := make(chan engine.Command, 4)
	srv := &Server{
		EngineAddr: "unused",
		Log:        zaptest.NewLogger(t),
		send: func(ctx context.Context, addr string, cmd engine.Command) (engine.Response, error) {
			sent <- cmd
			return engine.Response{Type: engine.RespSuccess}, nil
		},
	}

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		srv.handle(context.Background(), server)
		close(done)
	}()

	payload, err := json.Marshal(env)
	require.NoError(t, err)
	_, err = client.Write(payload)
	require.NoError(t, err)
	require.NoError(t, client.Close()) // end of upload

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("handler did not finish")
	}
	return sent
}

func TestIngestion_TeamProfileUpload(t *testing.T) {
	pic := encodePNG(t)
	sent := uploadOnce(t, Envelope{
		Kind:    Kind{Type: KindTeamProfile, Session: 9, Team: 2},
		Picture: pic,
	})

	require.Len(t, sent, 1, "exactly one engine command per upload")
	cmd := <-sent
	require.Equal(t, engine.ActUploadTeamPicture, cmd.Action.Type)
	require.NotNil(t, cmd.Session)
	require.Equal(t, uint64(9), *cmd.Session)
	require.Equal(t, 2, cmd.Action.Team)
	require.Equal(t, pic, cmd.Action.Picture)
}

func TestIngestion_PlayerProfileUpload(t *testing.T) {
	sent := uploadOnce(t, Envelope{
		Kind:    Kind{Type: KindPlayerProfile, Player: 51},
		Picture: encodeJPEG(t),
	})

	require.Len(t, sent, 1)
	cmd := <-sent
	require.Equal(t, engine.ActUploadPlayerPicture, cmd.Action.Type)
	require.Nil(t, cmd.Session)
	require.Equal(t, uint64(51), cmd.Action.Player)
}

func TestIngestion_PeriodUpload(t *testing.T) {
	pic := encodePNG(t)
	sent := uploadOnce(t, Envelope{
		Kind:    Kind{Type: KindPeriod, Session: 9, Team: 2, Period: 4},
		Picture: pic,
	})

	require.Len(t, sent, 1)
	cmd := <-sent
	require.Equal(t, engine.ActAttachPeriodPictures, cmd.Action.Type)
	require.Equal(t, uint64(9), *cmd.Session)
	require.Equal(t, 2, cmd.Action.Team)
	require.Equal(t, 4, cmd.Action.Period)
	require.Equal(t, [][]byte{pic}, cmd.Action.Pictures)
}

func TestIngestion_BadUploadsSendNothing(t *testing.T) {
	// invalid picture bytes
	sent := uploadOnce(t, Envelope{
		Kind:    Kind{Type: KindTeamProfile, Session: 9, Team: 2},
		Picture: []byte("junk"),
	})
	require.Empty(t, sent)

	// unknown kind
	sent = uploadOnce(t, Envelope{
		Kind:    Kind{Type: KindType("Banner"), Session: 9},
		Picture: encodePNG(t),
	})
	require.Empty(t, sent)
}

func TestIngestion_UndecodableEnvelopeSendsNothing(t *testing.T) {
	sent := make(chan engine.Command, 1)
	srv := &Server{
		EngineAddr: "unused",
		Log:        zaptest.NewLogger(t),
		send: func(ctx context.Context, addr string, cmd engine.Command) (engine.Response, error) {
			sent <- cmd
			return engine.Response{Type: engine.RespSuccess}, nil
		},
	}

	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		srv.handle(context.Background(), server)
		close(done)
	}()

	_, err := client.Write([]byte("this is not json"))
	require.NoError(t, err)
	require.NoError(t, client.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("handler did not finish")
	}
	require.Empty(t, sent)
}
