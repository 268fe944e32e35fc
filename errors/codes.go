package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an error that is not a domain error.
	CodeUnknown Code = "UNKNOWN"

	// Connection errors
	CodeNotRegistered Code = "NOT_REGISTERED"
	CodeUnknownPlayer Code = "UNKNOWN_PLAYER"
	CodePlayerBusy    Code = "PLAYER_BUSY"

	// Request errors
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Combat errors
	CodeInvalidAction       Code = "INVALID_ACTION"
	CodeInsufficientStamina Code = "INSUFFICIENT_STAMINA"

	// Session errors
	CodeGameNotActive Code = "GAME_NOT_ACTIVE"
	CodeGameNotFound  Code = "GAME_NOT_FOUND"

	// Invitation errors
	CodeInvalidOrExpiredInvitation Code = "INVALID_OR_EXPIRED_INVITATION"
)
