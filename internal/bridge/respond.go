package bridge

import (
	"go.uber.org/zap"

	"github.com/avogel/chase-bridge/internal/engine"
	"github.com/avogel/chase-bridge/internal/protocol"
)

// toNotification maps a direct engine response to at most one client
// notification. Acknowledgement-only responses and internal lookup results
// yield none; so do error kinds reserved for protocol misuse.
func toNotification(resp engine.Response, id Identity, log *zap.Logger) (protocol.Notification, bool) {
	switch resp.Type {
	case engine.RespState:
		ev := everythingFromState(resp, id)
		return protocol.Notification{Type: protocol.NotifyEverything, Everything: &ev}, true

	case engine.RespSuccess, engine.RespPlayer, engine.RespTeam:
		return protocol.Notification{}, false

	case engine.RespError:
		if resp.Err == nil {
			log.Warn("engine error response without error payload")
			return protocol.Notification{}, false
		}
		if !resp.Err.UserFacing() {
			log.Error("engine rejected a bridge command",
				zap.String("kind", string(resp.Err.Kind)),
				zap.String("detail", resp.Err.Detail))
			return protocol.Notification{}, false
		}
		return protocol.Notification{
			Type: protocol.NotifyError,
			Error: &protocol.ErrorInfo{
				Kind:   string(resp.Err.Kind),
				Detail: resp.Err.Detail,
			},
		}, true

	case engine.RespAddedPeriod:
		return protocol.Notification{Type: protocol.NotifyAddedPeriod, PeriodID: resp.PeriodID}, true

	case engine.RespPictures:
		return protocol.Notification{Type: protocol.NotifyPictures, Pictures: resp.Pictures}, true

	case engine.RespPastLocations:
		return protocol.Notification{
			Type:      protocol.NotifySendPastLocations,
			Team:      resp.PastTeam,
			Locations: resp.Locations,
		}, true

	default:
		log.Warn("unhandled engine response", zap.String("type", string(resp.Type)))
		return protocol.Notification{}, false
	}
}

// everythingFromState builds the client's full-state snapshot from a
// SendState response. The connection's classification comes from locating its
// own team in the snapshot and reading the role, but only while a game runs.
func everythingFromState(resp engine.Response, id Identity) protocol.Everything {
	state := protocol.GameNotRunning
	if resp.Game != nil {
		for _, t := range resp.Teams {
			if t.ID != id.Team {
				continue
			}
			if t.Role == engine.RoleCatcher {
				state = protocol.GameCatcher
			} else {
				state = protocol.GameRunner
			}
			break
		}
	}

	teams := make([]protocol.Team, len(resp.Teams))
	for i, t := range resp.Teams {
		teams[i] = toWireTeam(t)
	}

	return protocol.Everything{
		State:       state,
		Teams:       teams,
		Events:      resp.Events,
		You:         id.Player,
		YourTeam:    id.Team,
		YourSession: id.Session,
	}
}

func toWireTeam(t engine.Team) protocol.Team {
	players := make([]protocol.Player, len(t.Players))
	for i, p := range t.Players {
		players[i] = protocol.Player{ID: p.ID, Name: p.Name}
	}
	loc := protocol.LatLon{}
	if t.Location != nil {
		loc = *t.Location
	}
	return protocol.Team{
		ID:                  t.ID,
		Name:                t.Name,
		IsCatcher:           t.Role == engine.RoleCatcher,
		PictureID:           t.PictureID,
		Bounty:              t.Bounty,
		Points:              t.Points,
		Players:             players,
		Challenges:          t.Challenges,
		CompletedChallenges: t.CompletedChallenges,
		Colour:              t.Colour,
		Location:            loc,
		InGracePeriod:       t.InGracePeriod,
	}
}
