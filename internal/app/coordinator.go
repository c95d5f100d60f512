package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quiz-room-service/internal/domain"
)

// RoomRegistry abstracts where live rooms are kept.
type RoomRegistry interface {
	Create(room *Room) error
	Get(pin string) (*Room, bool)
	Delete(pin string)
	All() []*Room
}

// QuizRepository resolves stored question sets by ID.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// DefaultMaxRoomAge is how long a room may live before the janitor drops it.
const DefaultMaxRoomAge = time.Hour

// Coordinator implements the room transitions. It is driven by a single
// goroutine (see Engine) and holds no locks of its own.
type Coordinator struct {
	rooms   RoomRegistry
	members map[string]string // connection id -> pin
	newPin  func() string
	now     func() time.Time
	maxAge  time.Duration
	mirror  *MirrorWriter
	log     zerolog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithPinSource replaces RandomPin.
func WithPinSource(next func() string) Option {
	return func(c *Coordinator) { c.newPin = next }
}

// WithMaxRoomAge sets the janitor's age threshold.
func WithMaxRoomAge(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithMirror publishes room snapshots after every change.
func WithMirror(w *MirrorWriter) Option {
	return func(c *Coordinator) { c.mirror = w }
}

func NewCoordinator(rooms RoomRegistry, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:   rooms,
		members: make(map[string]string),
		newPin:  RandomPin,
		now:     time.Now,
		maxAge:  DefaultMaxRoomAge,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRoom opens a new room with connID as host. A connection that is
// already in a room leaves it first.
func (c *Coordinator) CreateRoom(connID string, questions domain.QuestionList, timeLimit int) ([]Instruction, error) {
	out := c.leaveCurrent(connID)

	room, err := c.allocateRoom(connID, questions, timeLimit)
	if err != nil {
		return out, err
	}
	c.members[connID] = room.pin
	c.publish(room)

	c.log.Info().Str("pin", room.pin).Int("questions", len(questions)).Int("time_limit", timeLimit).Msg("room created")
	return append(out,
		joinGroup(connID, room.pin),
		send(connID, EventRoomCreated, RoomCreatedPayload{Pin: room.pin}),
		send(connID, EventPlayerJoined, PlayersPayload{Players: room.Players()}),
	), nil
}

func (c *Coordinator) allocateRoom(connID string, questions domain.QuestionList, timeLimit int) (*Room, error) {
	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		pin := c.newPin()
		if _, taken := c.rooms.Get(pin); taken {
			continue
		}
		room := NewRoom(pin, connID, questions, timeLimit, c.now())
		err := c.rooms.Create(room)
		if errors.Is(err, domain.ErrPinInUse) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("register room: %w", err)
		}
		return room, nil
	}
	return nil, fmt.Errorf("no free room pin after %d attempts", maxPinAttempts)
}

// JoinRoom adds connID to the room behind pin under the requested name.
func (c *Coordinator) JoinRoom(connID, pin, name string) ([]Instruction, error) {
	room, ok := c.rooms.Get(pin)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.started {
		return nil, domain.ErrAlreadyStarted
	}
	if room.hasMember(connID) {
		return nil, domain.ErrAlreadyJoined
	}
	resolved, err := room.resolveName(name)
	if err != nil {
		return nil, err
	}

	out := c.leaveCurrent(connID)
	room.addPlayer(connID, resolved)
	c.members[connID] = pin
	c.publish(room)

	c.log.Info().Str("pin", pin).Str("player", resolved).Int("players", room.PlayerCount()).Msg("player joined")
	players := room.Players()
	return append(out,
		joinGroup(connID, pin),
		send(connID, EventJoinedRoom, JoinedRoomPayload{Pin: pin, Players: players}),
		broadcast(pin, EventPlayerJoined, PlayersPayload{Players: players}),
	), nil
}

// StartQuiz moves the room out of the lobby. Only the host may do this.
func (c *Coordinator) StartQuiz(connID, pin string) ([]Instruction, error) {
	room, ok := c.rooms.Get(pin)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if err := room.start(connID); err != nil {
		return nil, err
	}
	c.publish(room)

	c.log.Info().Str("pin", pin).Int("players", room.PlayerCount()).Msg("quiz started")
	return []Instruction{
		broadcast(pin, EventQuizStarted, QuizStartedPayload{Questions: room.questions, TimeLimit: room.timeLimit}),
	}, nil
}

// SubmitScore records a self-reported score. Submissions from connections
// that are not in the room are ignored.
func (c *Coordinator) SubmitScore(connID, pin string, score, total int) ([]Instruction, error) {
	room, ok := c.rooms.Get(pin)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	member, completed := room.submit(connID, score, total)
	if !member {
		return nil, nil
	}
	c.publish(room)

	c.log.Debug().Str("pin", pin).Str("conn", connID).Int("score", score).Int("total", total).Msg("score submitted")
	if !completed {
		return nil, nil
	}
	c.log.Info().Str("pin", pin).Int("results", len(room.results)).Msg("all players finished")
	return []Instruction{
		broadcast(pin, EventQuizResults, QuizResultsPayload{Results: room.Results()}),
	}, nil
}

// Disconnect removes connID from whatever room it is in. Unknown connections are ignored.
func (c *Coordinator) Disconnect(connID string) []Instruction {
	return c.leaveCurrent(connID)
}

// GetRoomInfo returns the diagnostic view of a room.
func (c *Coordinator) GetRoomInfo(pin string) (domain.RoomInfo, error) {
	room, ok := c.rooms.Get(pin)
	if !ok {
		return domain.RoomInfo{}, domain.ErrRoomNotFound
	}
	return room.Info(), nil
}

// Sweep deletes rooms that are empty or older than the max age. Evicted
// groups are dropped without telling their members.
func (c *Coordinator) Sweep(now time.Time) []Instruction {
	var out []Instruction
	for _, room := range c.rooms.All() {
		age := now.Sub(room.createdAt)
		if room.PlayerCount() > 0 && age <= c.maxAge {
			continue
		}
		c.closeRoom(room)
		out = append(out, dropGroup(room.pin))
		c.log.Info().Str("pin", room.pin).Dur("age", age).Int("players", room.PlayerCount()).Msg("room swept")
	}
	return out
}

// RoomCount reports how many rooms are live.
func (c *Coordinator) RoomCount() int {
	return len(c.rooms.All())
}

func (c *Coordinator) leaveCurrent(connID string) []Instruction {
	pin, ok := c.members[connID]
	if !ok {
		return nil
	}
	delete(c.members, connID)

	room, ok := c.rooms.Get(pin)
	if !ok {
		return nil
	}
	out := []Instruction{leaveGroup(connID, pin)}

	if connID == room.hostID {
		c.closeRoom(room)
		c.log.Info().Str("pin", pin).Msg("host left, room closed")
		return append(out,
			broadcast(pin, EventError, ErrorPayload{Code: domain.CodeHostLeft, Message: "Host has left the room"}),
			dropGroup(pin),
		)
	}

	if !room.removePlayer(connID) {
		return out
	}
	c.publish(room)
	c.log.Info().Str("pin", pin).Int("players", room.PlayerCount()).Msg("player left")
	return append(out, broadcast(pin, EventPlayerLeft, PlayersPayload{Players: room.Players()}))
}

func (c *Coordinator) closeRoom(room *Room) {
	for _, p := range room.players {
		if c.members[p.ConnectionID] == room.pin {
			delete(c.members, p.ConnectionID)
		}
	}
	c.rooms.Delete(room.pin)
	if c.mirror != nil {
		c.mirror.Delete(room.pin)
	}
}

func (c *Coordinator) publish(room *Room) {
	if c.mirror != nil {
		c.mirror.Save(room.Snapshot())
	}
}
