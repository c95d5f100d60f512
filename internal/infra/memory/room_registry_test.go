package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

func TestRoomRegistryLifecycle(t *testing.T) {
	registry := NewRoomRegistry()
	room := app.NewRoom("123456", "host", nil, 0, time.Now())

	require.NoError(t, registry.Create(room))

	got, ok := registry.Get("123456")
	require.True(t, ok)
	assert.Same(t, room, got)

	registry.Delete("123456")
	_, ok = registry.Get("123456")
	assert.False(t, ok)

	assert.NotPanics(t, func() { registry.Delete("123456") })
}

func TestRoomRegistryRejectsDuplicatePin(t *testing.T) {
	registry := NewRoomRegistry()
	require.NoError(t, registry.Create(app.NewRoom("111111", "a", nil, 0, time.Now())))

	err := registry.Create(app.NewRoom("111111", "b", nil, 0, time.Now()))
	assert.ErrorIs(t, err, domain.ErrPinInUse)

	got, _ := registry.Get("111111")
	assert.Equal(t, "a", got.HostID())
}

func TestRoomRegistryAllIsOldestFirstSnapshot(t *testing.T) {
	registry := NewRoomRegistry()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, registry.Create(app.NewRoom("222222", "b", nil, 0, base.Add(time.Minute))))
	require.NoError(t, registry.Create(app.NewRoom("111111", "a", nil, 0, base)))

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "111111", all[0].Pin())
	assert.Equal(t, "222222", all[1].Pin())

	registry.Delete("111111")
	assert.Len(t, all, 2, "snapshot must not change after delete")
	assert.Len(t, registry.All(), 1)
}
