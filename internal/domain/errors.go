package domain

import "errors"

// Error codes carried on the wire next to the human readable message.
const (
	CodeRoomNotFound        = "room_not_found"
	CodeAlreadyStarted      = "already_started"
	CodeNameTaken           = "name_taken"
	CodeNotHost             = "not_host"
	CodeInsufficientPlayers = "insufficient_players"
	CodeAlreadyJoined       = "already_joined"
	CodeInvalidPayload      = "invalid_payload"
	CodeUnknownEvent        = "unknown_event"
	CodeRateLimited         = "rate_limited"
	CodeHostLeft            = "host_left"
	CodeInternal            = "internal"
)

// RoomError is a client-facing failure of a room transition.
type RoomError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RoomError) Error() string {
	return e.Message
}

var (
	// ErrRoomNotFound is returned when a pin is not (or no longer) in the registry.
	ErrRoomNotFound = &RoomError{Code: CodeRoomNotFound, Message: "Room not found"}
	// ErrAlreadyStarted is returned when joining or starting a room whose quiz is running.
	ErrAlreadyStarted = &RoomError{Code: CodeAlreadyStarted, Message: "Quiz has already started"}
	// ErrNameTaken is returned when a requested name collides case-insensitively.
	ErrNameTaken = &RoomError{Code: CodeNameTaken, Message: "Name already taken"}
	// ErrNotHost is returned when someone other than the creator tries to start.
	ErrNotHost = &RoomError{Code: CodeNotHost, Message: "Only the host can start the quiz"}
	// ErrInsufficientPlayers is returned when starting with fewer than two players.
	ErrInsufficientPlayers = &RoomError{Code: CodeInsufficientPlayers, Message: "Need at least 2 players to start"}
	// ErrAlreadyJoined is returned when a connection joins a room it is already in.
	ErrAlreadyJoined = &RoomError{Code: CodeAlreadyJoined, Message: "Already in this room"}

	ErrUnknownEvent = &RoomError{Code: CodeUnknownEvent, Message: "Unknown event"}
	ErrRateLimited  = &RoomError{Code: CodeRateLimited, Message: "Too many messages, slow down"}
)

// InvalidPayload reports a malformed inbound message.
func InvalidPayload(message string) *RoomError {
	return &RoomError{Code: CodeInvalidPayload, Message: message}
}

var (
	// ErrPinInUse is returned by a registry asked to store a pin it already holds.
	ErrPinInUse = errors.New("room pin already in use")
	// ErrQuizNotFound indicates a question set could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)

// AsRoomError unwraps err into a RoomError, falling back to a generic internal error.
func AsRoomError(err error) *RoomError {
	var re *RoomError
	if errors.As(err, &re) {
		return re
	}
	if errors.Is(err, ErrQuizNotFound) {
		return &RoomError{Code: CodeInvalidPayload, Message: "Quiz not found"}
	}
	return &RoomError{Code: CodeInternal, Message: "Something went wrong"}
}
