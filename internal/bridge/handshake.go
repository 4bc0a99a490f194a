// Package bridge holds the per-connection session adapter: the login
// handshake, the request/response/broadcast translation rules, and the
// orchestrator that relays between one client socket and the engine.
package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/avogel/chase-bridge/internal/engine"
	"github.com/avogel/chase-bridge/internal/protocol"
)

// Identity is what a successful handshake establishes: who this connection
// is, fixed for the lifetime of the session.
type Identity struct {
	Player  uint64
	Session uint64
	Team    int
}

// Handshake reads client frames until a Login authenticates. Every rejection
// answers LoginSuccessful(false) and loops back to waiting; frames that are
// not Login are dropped with a log and do not fail the handshake. A transport
// or engine error ends the connection.
func Handshake(ctx context.Context, r *bufio.Reader, w io.Writer, eng *engine.Dispatcher, log *zap.Logger) (Identity, error) {
	for {
		req, err := protocol.ReadRequest(r)
		if err != nil {
			return Identity{}, fmt.Errorf("reading login frame: %w", err)
		}
		if req.Type != protocol.ReqLogin {
			log.Warn("frame before login, ignoring", zap.String("type", string(req.Type)))
			continue
		}

		id, ok, err := lookupIdentity(ctx, req.Passphrase, eng, log)
		if err != nil {
			return Identity{}, err
		}
		if err := writeLoginResult(w, ok); err != nil {
			return Identity{}, err
		}
		if ok {
			return id, nil
		}
	}
}

// lookupIdentity resolves a passphrase to (player, session, team). The bool
// result distinguishes a clean rejection from a transport failure.
func lookupIdentity(ctx context.Context, passphrase string, eng *engine.Dispatcher, log *zap.Logger) (Identity, bool, error) {
	resp, err := eng.Send(ctx, engine.Command{
		Action: engine.Action{Type: engine.ActGetPlayerByPassphrase, Passphrase: passphrase},
	})
	if err != nil {
		return Identity{}, false, fmt.Errorf("passphrase lookup: %w", err)
	}
	if resp.Type != engine.RespPlayer || resp.Player == nil {
		log.Info("login rejected: no unique player for passphrase")
		return Identity{}, false, nil
	}
	player := *resp.Player
	if player.Session == nil {
		log.Info("login rejected: player has no active session", zap.Uint64("player", player.ID))
		return Identity{}, false, nil
	}

	state, err := eng.Send(ctx, engine.Command{
		Session: player.Session,
		Action:  engine.Action{Type: engine.ActGetState},
	})
	if err != nil {
		return Identity{}, false, fmt.Errorf("session state lookup: %w", err)
	}
	if state.Type != engine.RespState {
		log.Warn("login rejected: engine returned no state for session",
			zap.Uint64("session", *player.Session))
		return Identity{}, false, nil
	}

	team, ok := teamOfPlayer(state.Teams, player.ID)
	if !ok {
		log.Info("login rejected: player not on any team",
			zap.Uint64("player", player.ID), zap.Uint64("session", *player.Session))
		return Identity{}, false, nil
	}

	log.Info("login successful",
		zap.Uint64("player", player.ID),
		zap.Uint64("session", *player.Session),
		zap.Int("team", team))
	return Identity{Player: player.ID, Session: *player.Session, Team: team}, true, nil
}

func teamOfPlayer(teams []engine.Team, player uint64) (int, bool) {
	for _, t := range teams {
		for _, p := range t.Players {
			if p.ID == player {
				return t.ID, true
			}
		}
	}
	return 0, false
}

func writeLoginResult(w io.Writer, ok bool) error {
	return protocol.WriteNotification(w, protocol.Notification{
		Type:    protocol.NotifyLoginSuccessful,
		Success: &ok,
	})
}
