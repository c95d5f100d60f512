package app

import "quiz-room-service/internal/domain"

// Outbound event names.
const (
	EventRoomCreated  = "roomCreated"
	EventPlayerJoined = "playerJoined"
	EventJoinedRoom   = "joinedRoom"
	EventQuizStarted  = "quizStarted"
	EventQuizResults  = "quizResults"
	EventPlayerLeft   = "playerLeft"
	EventRoomInfo     = "roomInfo"
	EventError        = "error"
)

// Op says what the gateway should do with an Instruction.
type Op int

const (
	// OpSend delivers an event to one connection.
	OpSend Op = iota
	// OpBroadcast delivers an event to every connection in the pin's group.
	OpBroadcast
	// OpJoinGroup adds a connection to the pin's group.
	OpJoinGroup
	// OpLeaveGroup removes a connection from the pin's group.
	OpLeaveGroup
	// OpDropGroup forgets the pin's group entirely.
	OpDropGroup
)

func (o Op) String() string {
	switch o {
	case OpSend:
		return "send"
	case OpBroadcast:
		return "broadcast"
	case OpJoinGroup:
		return "join_group"
	case OpLeaveGroup:
		return "leave_group"
	case OpDropGroup:
		return "drop_group"
	default:
		return "unknown"
	}
}

// Instruction is one step of the outcome of a room transition, executed in order by the gateway.
type Instruction struct {
	Op           Op
	ConnectionID string
	Pin          string
	Event        string
	Payload      any
}

// Dispatcher carries out instructions. Implementations must not block.
type Dispatcher interface {
	Dispatch(instructions []Instruction)
}

type RoomCreatedPayload struct {
	Pin string `json:"pin"`
}

type PlayersPayload struct {
	Players []domain.Player `json:"players"`
}

type JoinedRoomPayload struct {
	Pin     string          `json:"pin"`
	Players []domain.Player `json:"players"`
}

type QuizStartedPayload struct {
	Questions domain.QuestionList `json:"questions"`
	TimeLimit int                 `json:"timeLimit"`
}

type QuizResultsPayload struct {
	Results []domain.Result `json:"results"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func send(connID, event string, payload any) Instruction {
	return Instruction{Op: OpSend, ConnectionID: connID, Event: event, Payload: payload}
}

func broadcast(pin, event string, payload any) Instruction {
	return Instruction{Op: OpBroadcast, Pin: pin, Event: event, Payload: payload}
}

func joinGroup(connID, pin string) Instruction {
	return Instruction{Op: OpJoinGroup, ConnectionID: connID, Pin: pin}
}

func leaveGroup(connID, pin string) Instruction {
	return Instruction{Op: OpLeaveGroup, ConnectionID: connID, Pin: pin}
}

func dropGroup(pin string) Instruction {
	return Instruction{Op: OpDropGroup, Pin: pin}
}

// ErrorInstruction reports err to a single connection.
func ErrorInstruction(connID string, err error) Instruction {
	re := domain.AsRoomError(err)
	return send(connID, EventError, ErrorPayload{Code: re.Code, Message: re.Message})
}
