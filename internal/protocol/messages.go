// Package protocol defines the client-facing wire schema: the request and
// notification unions exchanged with the mobile app, and the length-prefixed
// framing both directions use. The schema is versioned; see Version.
package protocol

// Version is the canonical schema version. Every frame carries it and a
// mismatch is treated as an undecodable frame. Bump only with a coordinated
// app release.
const Version = 1

// GameState is the client-visible classification of this connection's team.
type GameState string

const (
	GameNotRunning GameState = "GameNotRunning"
	GameRunner     GameState = "Runner"
	GameCatcher    GameState = "Catcher"
)

// LatLon is a WGS84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TimedLocation is one past-location sample.
type TimedLocation struct {
	Location LatLon `json:"location"`
	Time     int64  `json:"time"` // unix seconds
}

// TimeWindow bounds a past-locations query, unix seconds, inclusive.
type TimeWindow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type Player struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type Challenge struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      uint64 `json:"points"`
}

type CompletedChallenge struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Points      uint64   `json:"points"`
	PictureIDs  []uint64 `json:"picture_ids,omitempty"`
	Time        uint32   `json:"time"` // seconds from midnight
}

type Team struct {
	ID                  int                  `json:"id"`
	Name                string               `json:"name"`
	IsCatcher           bool                 `json:"is_catcher"`
	PictureID           *uint64              `json:"picture_id,omitempty"`
	Bounty              uint64               `json:"bounty"`
	Points              uint64               `json:"points"`
	Players             []Player             `json:"players"`
	Challenges          []Challenge          `json:"challenges,omitempty"`
	CompletedChallenges []CompletedChallenge `json:"completed_challenges,omitempty"`
	Colour              [3]uint8             `json:"colour"`
	Location            LatLon               `json:"location"`
	InGracePeriod       bool                 `json:"in_grace_period"`
}

// EventKind tags a GameEvent.
type EventKind string

const (
	EventCatch      EventKind = "Catch"
	EventCompletion EventKind = "Completion"
)

// GameEvent is one entry of the game's event history: either a catch or a
// challenge completion.
type GameEvent struct {
	Kind        EventKind  `json:"kind"`
	CatcherID   int        `json:"catcher_id,omitempty"`
	CaughtID    int        `json:"caught_id,omitempty"`
	Bounty      uint64     `json:"bounty,omitempty"`
	Challenge   *Challenge `json:"challenge,omitempty"`
	CompleterID int        `json:"completer_id,omitempty"`
	Time        uint32     `json:"time"` // seconds from midnight
}

// Everything is the full-state snapshot sent to a client.
type Everything struct {
	State       GameState   `json:"state"`
	Teams       []Team      `json:"teams"`
	Events      []GameEvent `json:"events,omitempty"`
	You         uint64      `json:"you"`
	YourTeam    int         `json:"your_team"`
	YourSession uint64      `json:"your_session"`
}

type Picture struct {
	ID          uint64 `json:"id"`
	Data        []byte `json:"data"`
	IsThumbnail bool   `json:"is_thumbnail"`
}

// ErrorInfo is a user-facing engine error relayed to the client.
type ErrorInfo struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type RequestType string

const (
	ReqLogin                RequestType = "Login"
	ReqLocation             RequestType = "Location"
	ReqAttachPeriodPictures RequestType = "AttachPeriodPictures"
	ReqUploadPlayerPicture  RequestType = "UploadPlayerPicture"
	ReqUploadTeamPicture    RequestType = "UploadTeamPicture"
	ReqComplete             RequestType = "Complete"
	ReqCatch                RequestType = "Catch"
	ReqRequestEverything    RequestType = "RequestEverything"
	ReqPing                 RequestType = "Ping"
	ReqRequestPictures      RequestType = "RequestPictures"
	ReqRequestThumbnails    RequestType = "RequestThumbnails"
	ReqRequestPastLocations RequestType = "RequestPastLocations"
)

// Request is one client → bridge frame. Fields are populated per Type; unused
// fields stay zero and are omitted on the wire.
type Request struct {
	V    int         `json:"v"`
	Type RequestType `json:"type"`

	Passphrase  string      `json:"passphrase,omitempty"`   // Login
	Location    *LatLon     `json:"location,omitempty"`     // Location
	Period      int         `json:"period,omitempty"`       // AttachPeriodPictures
	Pictures    [][]byte    `json:"pictures,omitempty"`     // AttachPeriodPictures
	Picture     []byte      `json:"picture,omitempty"`      // UploadPlayerPicture, UploadTeamPicture
	CompletedID int         `json:"completed_id,omitempty"` // Complete
	CaughtID    int         `json:"caught_id,omitempty"`    // Catch
	PeriodID    *int        `json:"period_id,omitempty"`    // Complete, Catch
	Text        *string     `json:"text,omitempty"`         // Ping
	IDs         []uint64    `json:"ids,omitempty"`          // RequestPictures, RequestThumbnails
	Window      *TimeWindow `json:"window,omitempty"`       // RequestPastLocations
	Team        int         `json:"team,omitempty"`         // RequestPastLocations
}

type NotificationType string

const (
	NotifyEverything          NotificationType = "Everything"
	NotifyLoginSuccessful     NotificationType = "LoginSuccessful"
	NotifyPing                NotificationType = "Ping"
	NotifyBecomeCatcher       NotificationType = "BecomeCatcher"
	NotifyBecomeRunner        NotificationType = "BecomeRunner"
	NotifyBecomeNoGameRunning NotificationType = "BecomeNoGameRunning"
	NotifyGameStarted         NotificationType = "GameStarted"
	NotifyBecomeShutDown      NotificationType = "BecomeShutDown"
	NotifyLocation            NotificationType = "Location"
	NotifyAddedPeriod         NotificationType = "AddedPeriod"
	NotifyPictures            NotificationType = "Pictures"
	NotifyError               NotificationType = "Error"
	NotifySendPastLocations   NotificationType = "SendPastLocations"
	NotifyChallengeCompleted  NotificationType = "ChallengeCompleted"
	NotifyEventOccurred       NotificationType = "EventOccurred"
	NotifyYouLeftGracePeriod  NotificationType = "YouLeftGracePeriod"
)

// Notification is one bridge → client frame.
type Notification struct {
	V    int              `json:"v"`
	Type NotificationType `json:"type"`

	Everything *Everything     `json:"everything,omitempty"` // Everything, BecomeCatcher, BecomeRunner, BecomeNoGameRunning, GameStarted, ChallengeCompleted, EventOccurred, YouLeftGracePeriod
	Success    *bool           `json:"success,omitempty"`    // LoginSuccessful
	Text       *string         `json:"text,omitempty"`       // Ping
	Team       int             `json:"team,omitempty"`       // Location, SendPastLocations
	Location   *LatLon         `json:"location,omitempty"`   // Location
	PeriodID   int             `json:"period_id,omitempty"`  // AddedPeriod
	Pictures   []Picture       `json:"pictures,omitempty"`   // Pictures
	Error      *ErrorInfo      `json:"error,omitempty"`      // Error
	Locations  []TimedLocation `json:"locations,omitempty"`  // SendPastLocations
	Event      *GameEvent      `json:"event,omitempty"`      // ChallengeCompleted, EventOccurred
}
