package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

type recorder struct {
	batches chan []app.Instruction
}

func newRecorder() *recorder {
	return &recorder{batches: make(chan []app.Instruction, 16)}
}

func (r *recorder) Dispatch(instructions []app.Instruction) {
	r.batches <- instructions
}

func (r *recorder) next(t *testing.T) []app.Instruction {
	t.Helper()
	select {
	case batch := <-r.batches:
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("no instructions dispatched")
		return nil
	}
}

func startEngine(t *testing.T, c *app.Coordinator, every time.Duration) (*app.Engine, *recorder) {
	t.Helper()
	rec := newRecorder()
	engine := app.NewEngine(c, rec, every, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return engine, rec
}

func TestEngineRunsCommandsInOrder(t *testing.T) {
	c := newCoordinator(app.WithPinSource(pinSequence("482913")))
	engine, rec := startEngine(t, c, time.Hour)
	ctx := context.Background()

	require.NoError(t, engine.Submit(ctx, "h", app.CreateRoom{Questions: questions, TimeLimit: 15}))
	require.NoError(t, engine.Submit(ctx, "a", app.JoinRoom{Pin: "482913", Name: "Alice"}))
	require.NoError(t, engine.Submit(ctx, "a", app.StartQuiz{Pin: "482913"}))
	require.NoError(t, engine.Submit(ctx, "h", app.GetRoomInfo{Pin: "482913"}))

	created := rec.next(t)
	assert.Equal(t, app.EventRoomCreated, created[1].Event)

	joined := rec.next(t)
	assert.Equal(t, app.EventJoinedRoom, joined[1].Event)

	rejected := rec.next(t)
	require.Len(t, rejected, 1)
	assert.Equal(t, app.Instruction{
		Op:           app.OpSend,
		ConnectionID: "a",
		Event:        app.EventError,
		Payload:      app.ErrorPayload{Code: domain.CodeNotHost, Message: "Only the host can start the quiz"},
	}, rejected[0])

	info := rec.next(t)
	require.Len(t, info, 1)
	assert.Equal(t, app.EventRoomInfo, info[0].Event)
	assert.Equal(t, "h", info[0].ConnectionID)
	assert.Len(t, info[0].Payload.(domain.RoomInfo).Players, 2)
}

func TestEngineReject(t *testing.T) {
	engine, rec := startEngine(t, newCoordinator(), time.Hour)

	require.NoError(t, engine.Submit(context.Background(), "x", app.Reject{Err: domain.InvalidPayload("Pin is required")}))

	batch := rec.next(t)
	require.Len(t, batch, 1)
	assert.Equal(t, app.ErrorPayload{Code: domain.CodeInvalidPayload, Message: "Pin is required"}, batch[0].Payload)
}

func TestEngineInspect(t *testing.T) {
	c := newCoordinator(app.WithPinSource(pinSequence("482913")))
	engine, rec := startEngine(t, c, time.Hour)
	ctx := context.Background()

	_, err := engine.Inspect(ctx, "482913")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	require.NoError(t, engine.Submit(ctx, "h", app.CreateRoom{Questions: questions}))
	rec.next(t)

	info, err := engine.Inspect(ctx, "482913")
	require.NoError(t, err)
	assert.Equal(t, "482913", info.Pin)
	assert.Equal(t, 2, info.QuestionCount)
}

func TestEngineDisconnectIsSilentForStrangers(t *testing.T) {
	c := newCoordinator(app.WithPinSource(pinSequence("482913")))
	engine, rec := startEngine(t, c, time.Hour)
	ctx := context.Background()

	require.NoError(t, engine.Submit(ctx, "nobody", app.Disconnect{}))
	require.NoError(t, engine.Submit(ctx, "h", app.CreateRoom{Questions: questions}))

	// The first batch seen belongs to the create, not the disconnect.
	assert.Equal(t, app.EventRoomCreated, rec.next(t)[1].Event)
}

func TestEngineSweepsOnTicker(t *testing.T) {
	c := newCoordinator(
		app.WithPinSource(pinSequence("482913")),
		app.WithMaxRoomAge(time.Nanosecond),
	)
	engine, rec := startEngine(t, c, 10*time.Millisecond)

	require.NoError(t, engine.Submit(context.Background(), "h", app.CreateRoom{Questions: questions}))
	rec.next(t)

	swept := rec.next(t)
	assert.Equal(t, []app.Instruction{{Op: app.OpDropGroup, Pin: "482913"}}, swept)

	_, err := engine.Inspect(context.Background(), "482913")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}
