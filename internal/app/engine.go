package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"quiz-room-service/internal/domain"
)

// DefaultSweepInterval is how often the janitor runs.
const DefaultSweepInterval = 5 * time.Minute

// ErrEngineStopped is returned by Submit and Inspect once the engine has exited.
var ErrEngineStopped = errors.New("room engine stopped")

// Command is a room transition requested by a connection.
type Command interface {
	apply(c *Coordinator, connID string) ([]Instruction, error)
}

type CreateRoom struct {
	Questions domain.QuestionList
	TimeLimit int
}

func (cmd CreateRoom) apply(c *Coordinator, connID string) ([]Instruction, error) {
	return c.CreateRoom(connID, cmd.Questions, cmd.TimeLimit)
}

type JoinRoom struct {
	Pin  string
	Name string
}

func (cmd JoinRoom) apply(c *Coordinator, connID string) ([]Instruction, error) {
	return c.JoinRoom(connID, cmd.Pin, cmd.Name)
}

type StartQuiz struct {
	Pin string
}

func (cmd StartQuiz) apply(c *Coordinator, connID string) ([]Instruction, error) {
	return c.StartQuiz(connID, cmd.Pin)
}

type SubmitScore struct {
	Pin   string
	Score int
	Total int
}

func (cmd SubmitScore) apply(c *Coordinator, connID string) ([]Instruction, error) {
	return c.SubmitScore(connID, cmd.Pin, cmd.Score, cmd.Total)
}

type GetRoomInfo struct {
	Pin string
}

func (cmd GetRoomInfo) apply(c *Coordinator, connID string) ([]Instruction, error) {
	info, err := c.GetRoomInfo(cmd.Pin)
	if err != nil {
		return nil, err
	}
	return []Instruction{send(connID, EventRoomInfo, info)}, nil
}

type Disconnect struct{}

func (Disconnect) apply(c *Coordinator, connID string) ([]Instruction, error) {
	return c.Disconnect(connID), nil
}

// Reject reports err to the connection without touching any room. It keeps
// gateway-side validation errors in order with the connection's other replies.
type Reject struct {
	Err error
}

func (cmd Reject) apply(*Coordinator, string) ([]Instruction, error) {
	return nil, cmd.Err
}

type inspectResult struct {
	info domain.RoomInfo
	err  error
}

type envelope struct {
	connID  string
	cmd     Command
	inspect string
	reply   chan inspectResult
}

// Engine is the event loop that owns the Coordinator. Every command and
// every janitor sweep runs on the goroutine that called Run, one at a time.
type Engine struct {
	coord      *Coordinator
	out        Dispatcher
	inbox      chan envelope
	done       chan struct{}
	sweepEvery time.Duration
	log        zerolog.Logger
}

func NewEngine(coord *Coordinator, out Dispatcher, sweepEvery time.Duration, log zerolog.Logger) *Engine {
	if sweepEvery <= 0 {
		sweepEvery = DefaultSweepInterval
	}
	return &Engine{
		coord:      coord,
		out:        out,
		inbox:      make(chan envelope, 256),
		done:       make(chan struct{}),
		sweepEvery: sweepEvery,
		log:        log,
	}
}

// Run processes events until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.sweepEvery)
	defer ticker.Stop()

	e.log.Info().Dur("sweep_every", e.sweepEvery).Msg("room engine started")
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Int("rooms", e.coord.RoomCount()).Msg("room engine stopped")
			return
		case env := <-e.inbox:
			e.handle(env)
		case now := <-ticker.C:
			e.dispatch(e.coord.Sweep(now))
		}
	}
}

// Submit queues cmd on behalf of connID. Outcomes are delivered through the Dispatcher.
func (e *Engine) Submit(ctx context.Context, connID string, cmd Command) error {
	select {
	case e.inbox <- envelope{connID: connID, cmd: cmd}:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inspect returns a room's diagnostic view, read on the engine goroutine.
func (e *Engine) Inspect(ctx context.Context, pin string) (domain.RoomInfo, error) {
	reply := make(chan inspectResult, 1)
	select {
	case e.inbox <- envelope{inspect: pin, reply: reply}:
	case <-e.done:
		return domain.RoomInfo{}, ErrEngineStopped
	case <-ctx.Done():
		return domain.RoomInfo{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.info, res.err
	case <-e.done:
		return domain.RoomInfo{}, ErrEngineStopped
	case <-ctx.Done():
		return domain.RoomInfo{}, ctx.Err()
	}
}

func (e *Engine) handle(env envelope) {
	if env.reply != nil {
		info, err := e.coord.GetRoomInfo(env.inspect)
		env.reply <- inspectResult{info: info, err: err}
		return
	}

	out, err := env.cmd.apply(e.coord, env.connID)
	if err != nil {
		if domain.AsRoomError(err).Code == domain.CodeInternal {
			e.log.Error().Err(err).Str("conn", env.connID).Msg("room command failed")
		}
		out = append(out, ErrorInstruction(env.connID, err))
	}
	e.dispatch(out)
}

func (e *Engine) dispatch(out []Instruction) {
	if len(out) == 0 {
		return
	}
	e.out.Dispatch(out)
}
