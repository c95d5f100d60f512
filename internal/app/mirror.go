package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"quiz-room-service/internal/domain"
)

// RoomMirror receives best-effort copies of room state for operators.
type RoomMirror interface {
	SaveRoom(ctx context.Context, snapshot domain.RoomSnapshot) error
	DeleteRoom(ctx context.Context, pin string) error
}

const mirrorWriteTimeout = 2 * time.Second

type mirrorOp struct {
	pin      string
	snapshot *domain.RoomSnapshot // nil means delete
}

// MirrorWriter applies mirror updates in order on its own goroutine so room
// transitions never wait on I/O. Updates are dropped when the queue is full.
type MirrorWriter struct {
	mirror RoomMirror
	queue  chan mirrorOp
	log    zerolog.Logger
}

func NewMirrorWriter(mirror RoomMirror, size int, log zerolog.Logger) *MirrorWriter {
	if size <= 0 {
		size = 256
	}
	return &MirrorWriter{
		mirror: mirror,
		queue:  make(chan mirrorOp, size),
		log:    log,
	}
}

// Save queues a snapshot write.
func (w *MirrorWriter) Save(snapshot domain.RoomSnapshot) {
	w.enqueue(mirrorOp{pin: snapshot.Pin, snapshot: &snapshot})
}

// Delete queues a removal.
func (w *MirrorWriter) Delete(pin string) {
	w.enqueue(mirrorOp{pin: pin})
}

func (w *MirrorWriter) enqueue(op mirrorOp) {
	select {
	case w.queue <- op:
	default:
		w.log.Warn().Str("pin", op.pin).Msg("mirror queue full, dropping update")
	}
}

// Run drains the queue until ctx is canceled.
func (w *MirrorWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-w.queue:
			w.apply(ctx, op)
		}
	}
}

func (w *MirrorWriter) apply(ctx context.Context, op mirrorOp) {
	opCtx, cancel := context.WithTimeout(ctx, mirrorWriteTimeout)
	defer cancel()

	var err error
	if op.snapshot == nil {
		err = w.mirror.DeleteRoom(opCtx, op.pin)
	} else {
		err = w.mirror.SaveRoom(opCtx, *op.snapshot)
	}
	if err != nil {
		w.log.Warn().Err(err).Str("pin", op.pin).Msg("mirror write failed")
	}
}
