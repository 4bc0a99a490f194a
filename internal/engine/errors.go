package engine

// ErrorKind classifies an engine-reported domain error.
type ErrorKind string

const (
	ErrNotFound         ErrorKind = "NotFound"
	ErrAlreadyExists    ErrorKind = "AlreadyExists"
	ErrGameInProgress   ErrorKind = "GameInProgress"
	ErrGameNotRunning   ErrorKind = "GameNotRunning"
	ErrAmbiguousData    ErrorKind = "AmbiguousData"
	ErrInternal         ErrorKind = "InternalError"
	ErrNotImplemented   ErrorKind = "NotImplemented"
	ErrTeamIsRunner     ErrorKind = "TeamIsRunner"
	ErrTeamIsCatcher    ErrorKind = "TeamIsCatcher"
	ErrTeamsTooFar      ErrorKind = "TeamsTooFar"
	ErrBadData          ErrorKind = "BadData"
	ErrText             ErrorKind = "TextError"
	ErrPictureProblem   ErrorKind = "PictureProblem"
	ErrTooRapid         ErrorKind = "TooRapid"
	ErrTooFewChallenges ErrorKind = "TooFewChallenges"

	// Protocol-misuse kinds. These mean the bridge itself sent something
	// malformed; they are never relayed to clients.
	ErrNoSessionSupplied  ErrorKind = "NoSessionSupplied"
	ErrSessionNotRequired ErrorKind = "SessionNotRequired"
	ErrBadCommand         ErrorKind = "BadCommand"
)

// Error is an engine-reported domain error carried in a Response.
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// UserFacing reports whether this error kind is meant to be shown to end
// users. Protocol-misuse kinds are internal and must be dropped by callers.
func (e Error) UserFacing() bool {
	switch e.Kind {
	case ErrNoSessionSupplied, ErrSessionNotRequired, ErrBadCommand:
		return false
	}
	return true
}
