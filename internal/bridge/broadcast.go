package bridge

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/avogel/chase-bridge/internal/engine"
	"github.com/avogel/chase-bridge/internal/protocol"
)

// errIdentityInvalidated means the engine changed or deleted this
// connection's own identity out from under it. The session must end so the
// client reconnects and re-authenticates; no other session is affected.
var errIdentityInvalidated = errors.New("connection identity invalidated")

// filterBroadcast maps one engine broadcast to at most one notification for
// this connection, deciding relevance purely from identifiers embedded in the
// broadcast. Variants that embed full state trigger a refresh round trip
// through the dispatcher first.
func (s *Session) filterBroadcast(ctx context.Context, b engine.Broadcast) (protocol.Notification, bool, error) {
	switch b.Type {
	case engine.BcastLocation:
		return protocol.Notification{
			Type:     protocol.NotifyLocation,
			Team:     b.Team,
			Location: b.Location,
		}, true, nil

	case engine.BcastCaught:
		ev, err := s.fetchEverything(ctx)
		if err != nil {
			return protocol.Notification{}, false, err
		}
		switch s.id.Team {
		case b.Catcher:
			return protocol.Notification{Type: protocol.NotifyBecomeRunner, Everything: &ev}, true, nil
		case b.Caught:
			return protocol.Notification{Type: protocol.NotifyBecomeCatcher, Everything: &ev}, true, nil
		default:
			return protocol.Notification{
				Type:       protocol.NotifyEventOccurred,
				Everything: &ev,
				Event: &protocol.GameEvent{
					Kind:      protocol.EventCatch,
					CatcherID: b.Catcher,
					CaughtID:  b.Caught,
					Bounty:    b.Bounty,
					Time:      b.Time,
				},
			}, true, nil
		}

	case engine.BcastCompleted:
		ev, err := s.fetchEverything(ctx)
		if err != nil {
			return protocol.Notification{}, false, err
		}
		event := &protocol.GameEvent{
			Kind:        protocol.EventCompletion,
			CompleterID: b.Completer,
			Challenge:   b.Challenge,
			Time:        b.Time,
		}
		kind := protocol.NotifyEventOccurred
		if b.Completer == s.id.Team {
			kind = protocol.NotifyChallengeCompleted
		}
		return protocol.Notification{Type: kind, Everything: &ev, Event: event}, true, nil

	case engine.BcastPinged:
		return protocol.Notification{Type: protocol.NotifyPing, Text: b.Text}, true, nil

	case engine.BcastStarted:
		ev, err := s.fetchEverything(ctx)
		if err != nil {
			return protocol.Notification{}, false, err
		}
		return protocol.Notification{Type: protocol.NotifyGameStarted, Everything: &ev}, true, nil

	case engine.BcastEnded:
		ev, err := s.fetchEverything(ctx)
		if err != nil {
			return protocol.Notification{}, false, err
		}
		return protocol.Notification{Type: protocol.NotifyBecomeNoGameRunning, Everything: &ev}, true, nil

	case engine.BcastTeamMadeRunner:
		// membership is checked against the roster embedded in the broadcast
		if b.Team != s.id.Team && !slices.Contains(b.Players, s.id.Player) {
			return protocol.Notification{}, false, nil
		}
		ev, err := s.fetchEverything(ctx)
		if err != nil {
			return protocol.Notification{}, false, err
		}
		return protocol.Notification{Type: protocol.NotifyBecomeRunner, Everything: &ev}, true, nil

	case engine.BcastTeamMadeCatcher:
		if b.Team != s.id.Team {
			return protocol.Notification{}, false, nil
		}
		ev, err := s.fetchEverything(ctx)
		if err != nil {
			return protocol.Notification{}, false, err
		}
		return protocol.Notification{Type: protocol.NotifyBecomeCatcher, Everything: &ev}, true, nil

	case engine.BcastLeftGracePeriod:
		ev, err := s.fetchEverything(ctx)
		if err != nil {
			return protocol.Notification{}, false, err
		}
		if b.Team == s.id.Team {
			return protocol.Notification{Type: protocol.NotifyYouLeftGracePeriod, Everything: &ev}, true, nil
		}
		return protocol.Notification{Type: protocol.NotifyEverything, Everything: &ev}, true, nil

	case engine.BcastPlayerChangedTeam, engine.BcastPlayerChangedSession, engine.BcastPlayerDeleted:
		if b.Player != s.id.Player {
			return protocol.Notification{}, false, nil
		}
		s.log.Warn("identity invalidated by engine", zap.String("broadcast", string(b.Type)))
		return protocol.Notification{}, false, errIdentityInvalidated

	default:
		s.log.Warn("unhandled engine broadcast", zap.String("type", string(b.Type)))
		return protocol.Notification{}, false, nil
	}
}

// fetchEverything re-issues a state fetch and rebuilds the full snapshot, for
// broadcast variants that embed up-to-date state.
func (s *Session) fetchEverything(ctx context.Context) (protocol.Everything, error) {
	session := s.id.Session
	resp, err := s.eng.Send(ctx, engine.Command{
		Session: &session,
		Action:  engine.Action{Type: engine.ActGetState},
	})
	if err != nil {
		return protocol.Everything{}, fmt.Errorf("state refresh: %w", err)
	}
	if resp.Type != engine.RespState {
		return protocol.Everything{}, fmt.Errorf("state refresh: engine answered %s", resp.Type)
	}
	return everythingFromState(resp, s.id), nil
}
