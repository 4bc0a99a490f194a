package bridge

import (
	"fmt"

	"github.com/avogel/chase-bridge/internal/engine"
	"github.com/avogel/chase-bridge/internal/pictures"
	"github.com/avogel/chase-bridge/internal/protocol"
)

// toEngineCommand maps a non-picture client request to at most one engine
// command. Login never reaches here (handshake only) and picture-bearing
// requests go through pictureCommand instead; both return false, as does any
// unknown request type.
func toEngineCommand(req protocol.Request, id Identity) (engine.Command, bool) {
	session := id.Session

	switch req.Type {
	case protocol.ReqLocation:
		if req.Location == nil {
			return engine.Command{}, false
		}
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:     engine.ActSendLocation,
				Player:   id.Player,
				Location: req.Location,
			},
		}, true

	case protocol.ReqComplete:
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:      engine.ActComplete,
				Completer: id.Team,
				Completed: req.CompletedID,
				PeriodID:  req.PeriodID,
			},
		}, true

	case protocol.ReqCatch:
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:     engine.ActCatch,
				Catcher:  id.Team,
				Caught:   req.CaughtID,
				PeriodID: req.PeriodID,
			},
		}, true

	case protocol.ReqPing:
		// session-independent on purpose
		return engine.Command{
			Action: engine.Action{Type: engine.ActPing, Text: req.Text},
		}, true

	case protocol.ReqRequestEverything:
		return engine.Command{
			Session: &session,
			Action:  engine.Action{Type: engine.ActGetState},
		}, true

	case protocol.ReqRequestPictures:
		return engine.Command{
			Session: &session,
			Action:  engine.Action{Type: engine.ActGetPictures, IDs: req.IDs},
		}, true

	case protocol.ReqRequestThumbnails:
		return engine.Command{
			Session: &session,
			Action:  engine.Action{Type: engine.ActGetThumbnails, IDs: req.IDs},
		}, true

	case protocol.ReqRequestPastLocations:
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:   engine.ActGetPastLocations,
				Team:   req.Team,
				Window: req.Window,
			},
		}, true

	default:
		return engine.Command{}, false
	}
}

// isPictureRequest reports whether a request carries a raw picture payload
// whose decode must not run on the inbound relay loop.
func isPictureRequest(t protocol.RequestType) bool {
	switch t {
	case protocol.ReqAttachPeriodPictures, protocol.ReqUploadPlayerPicture, protocol.ReqUploadTeamPicture:
		return true
	}
	return false
}

// pictureCommand validates a picture-bearing request's payload and builds the
// matching engine command. CPU-bound; callers run it off the relay loop.
func pictureCommand(req protocol.Request, id Identity) (engine.Command, error) {
	session := id.Session

	switch req.Type {
	case protocol.ReqUploadPlayerPicture:
		if err := pictures.Validate(req.Picture); err != nil {
			return engine.Command{}, fmt.Errorf("player picture: %w", err)
		}
		return engine.Command{
			Action: engine.Action{
				Type:    engine.ActUploadPlayerPicture,
				Player:  id.Player,
				Picture: req.Picture,
			},
		}, nil

	case protocol.ReqUploadTeamPicture:
		if err := pictures.Validate(req.Picture); err != nil {
			return engine.Command{}, fmt.Errorf("team picture: %w", err)
		}
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:    engine.ActUploadTeamPicture,
				Team:    id.Team,
				Picture: req.Picture,
			},
		}, nil

	case protocol.ReqAttachPeriodPictures:
		if len(req.Pictures) == 0 {
			return engine.Command{}, fmt.Errorf("period pictures: empty upload")
		}
		for i, p := range req.Pictures {
			if err := pictures.Validate(p); err != nil {
				return engine.Command{}, fmt.Errorf("period picture %d: %w", i, err)
			}
		}
		return engine.Command{
			Session: &session,
			Action: engine.Action{
				Type:     engine.ActAttachPeriodPictures,
				Team:     id.Team,
				Period:   req.Period,
				Pictures: req.Pictures,
			},
		}, nil

	default:
		return engine.Command{}, fmt.Errorf("not a picture request: %s", req.Type)
	}
}
