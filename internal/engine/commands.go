// Package engine is the client side of the game engine's command/response and
// broadcast link: the wire unions, a per-session dispatcher that correlates
// concurrent round trips, and a one-shot sender for fire-and-forget uploads.
package engine

import (
	"github.com/avogel/chase-bridge/internal/protocol"
)

type ActionType string

const (
	ActGetPlayerByPassphrase ActionType = "GetPlayerByPassphrase"
	ActGetState              ActionType = "GetState"
	ActSendLocation          ActionType = "SendLocation"
	ActComplete              ActionType = "Complete"
	ActCatch                 ActionType = "Catch"
	ActPing                  ActionType = "Ping"
	ActGetPictures           ActionType = "GetPictures"
	ActGetThumbnails         ActionType = "GetThumbnails"
	ActGetPastLocations      ActionType = "GetPastLocations"
	ActUploadTeamPicture     ActionType = "UploadTeamPicture"
	ActUploadPlayerPicture   ActionType = "UploadPlayerPicture"
	ActAttachPeriodPictures  ActionType = "AttachPeriodPictures"
)

// Action is the tagged payload of a Command. Fields are populated per Type.
type Action struct {
	Type ActionType `json:"type"`

	Passphrase string               `json:"passphrase,omitempty"` // GetPlayerByPassphrase
	Player     uint64               `json:"player,omitempty"`     // SendLocation, UploadPlayerPicture
	Location   *protocol.LatLon     `json:"location,omitempty"`   // SendLocation
	Completer  int                  `json:"completer,omitempty"`  // Complete
	Completed  int                  `json:"completed,omitempty"`  // Complete
	Catcher    int                  `json:"catcher,omitempty"`    // Catch
	Caught     int                  `json:"caught,omitempty"`     // Catch
	PeriodID   *int                 `json:"period_id,omitempty"`  // Complete, Catch
	Text       *string              `json:"text,omitempty"`       // Ping
	IDs        []uint64             `json:"ids,omitempty"`        // GetPictures, GetThumbnails
	Window     *protocol.TimeWindow `json:"window,omitempty"`     // GetPastLocations
	Team       int                  `json:"team,omitempty"`       // GetPastLocations, UploadTeamPicture, AttachPeriodPictures
	Period     int                  `json:"period,omitempty"`     // AttachPeriodPictures
	Picture    []byte               `json:"picture,omitempty"`    // UploadTeamPicture, UploadPlayerPicture
	Pictures   [][]byte             `json:"pictures,omitempty"`   // AttachPeriodPictures
}

// Command is one bridge → engine request. Session scopes the action to a game
// instance; session-independent actions leave it nil.
type Command struct {
	Session *uint64 `json:"session,omitempty"`
	Action  Action  `json:"action"`
}

type TeamRole string

const (
	RoleRunner  TeamRole = "Runner"
	RoleCatcher TeamRole = "Catcher"
)

// Player is the engine's player record.
type Player struct {
	ID      uint64  `json:"id"`
	Name    string  `json:"name"`
	Session *uint64 `json:"session,omitempty"`
}

// Team is the engine's team record as it appears in state snapshots.
type Team struct {
	ID                  int                           `json:"id"`
	Name                string                        `json:"name"`
	Role                TeamRole                      `json:"role"`
	PictureID           *uint64                       `json:"picture_id,omitempty"`
	Bounty              uint64                        `json:"bounty"`
	Points              uint64                        `json:"points"`
	Players             []Player                      `json:"players"`
	Challenges          []protocol.Challenge          `json:"challenges,omitempty"`
	CompletedChallenges []protocol.CompletedChallenge `json:"completed_challenges,omitempty"`
	Colour              [3]uint8                      `json:"colour"`
	Location            *protocol.LatLon              `json:"location,omitempty"`
	InGracePeriod       bool                          `json:"in_grace_period"`
}

// Game is present in a state snapshot iff a game is currently running.
type Game struct {
	Phase string `json:"phase,omitempty"`
}

type ResponseType string

const (
	RespPlayer        ResponseType = "Player"
	RespTeam          ResponseType = "Team"
	RespState         ResponseType = "SendState"
	RespSuccess       ResponseType = "Success"
	RespError         ResponseType = "Error"
	RespAddedPeriod   ResponseType = "AddedPeriod"
	RespPictures      ResponseType = "Pictures"
	RespPastLocations ResponseType = "PastLocations"
)

// Response is one engine → bridge reply to a Command.
type Response struct {
	Type ResponseType `json:"type"`

	Player    *Player                  `json:"player,omitempty"`    // Player
	Team      *Team                    `json:"team,omitempty"`      // Team
	Teams     []Team                   `json:"teams,omitempty"`     // SendState
	Game      *Game                    `json:"game,omitempty"`      // SendState; nil when no game runs
	Events    []protocol.GameEvent     `json:"events,omitempty"`    // SendState
	Err       *Error                   `json:"error,omitempty"`     // Error
	PeriodID  int                      `json:"period_id,omitempty"` // AddedPeriod
	Pictures  []protocol.Picture       `json:"pictures,omitempty"`  // Pictures
	PastTeam  int                      `json:"past_team,omitempty"` // PastLocations
	Locations []protocol.TimedLocation `json:"locations,omitempty"` // PastLocations
}

type BroadcastType string

const (
	BcastLocation             BroadcastType = "Location"
	BcastCaught               BroadcastType = "Caught"
	BcastCompleted            BroadcastType = "Completed"
	BcastPinged               BroadcastType = "Pinged"
	BcastStarted              BroadcastType = "Started"
	BcastEnded                BroadcastType = "Ended"
	BcastTeamMadeRunner       BroadcastType = "TeamMadeRunner"
	BcastTeamMadeCatcher      BroadcastType = "TeamMadeCatcher"
	BcastLeftGracePeriod      BroadcastType = "LeftGracePeriod"
	BcastPlayerChangedTeam    BroadcastType = "PlayerChangedTeam"
	BcastPlayerChangedSession BroadcastType = "PlayerChangedSession"
	BcastPlayerDeleted        BroadcastType = "PlayerDeleted"
)

// Broadcast is one unsolicited engine push. Relevance to a given connection is
// decided purely from the identifiers embedded here.
type Broadcast struct {
	Type BroadcastType `json:"type"`

	Team      int                 `json:"team,omitempty"`      // Location, TeamMadeRunner, TeamMadeCatcher, LeftGracePeriod
	Location  *protocol.LatLon    `json:"location,omitempty"`  // Location
	Catcher   int                 `json:"catcher,omitempty"`   // Caught
	Caught    int                 `json:"caught,omitempty"`    // Caught
	Bounty    uint64              `json:"bounty,omitempty"`    // Caught
	Completer int                 `json:"completer,omitempty"` // Completed
	Challenge *protocol.Challenge `json:"challenge,omitempty"` // Completed
	Time      uint32              `json:"time,omitempty"`      // Caught, Completed
	Text      *string             `json:"text,omitempty"`      // Pinged
	Players   []uint64            `json:"players,omitempty"`   // TeamMadeRunner roster
	Player    uint64              `json:"player,omitempty"`    // PlayerChangedTeam, PlayerChangedSession, PlayerDeleted
}

// InvalidatesIdentity reports whether the broadcast revokes a login-derived
// identity. A session seeing its own player in one of these must end, so the
// dispatcher never discards them on overflow.
func (t BroadcastType) InvalidatesIdentity() bool {
	switch t {
	case BcastPlayerChangedTeam, BcastPlayerChangedSession, BcastPlayerDeleted:
		return true
	}
	return false
}
