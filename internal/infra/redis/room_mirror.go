package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-room-service/internal/domain"
)

const roomKeyPrefix = "quiz:room:"

// RoomMirror keeps a JSON copy of every live room in Redis so operators can
// see what the process holds. Rooms are never loaded back from here.
type RoomMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomMirror(client *redis.Client, ttl time.Duration) *RoomMirror {
	return &RoomMirror{client: client, ttl: ttl}
}

func (m *RoomMirror) SaveRoom(ctx context.Context, snapshot domain.RoomSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", snapshot.Pin, err)
	}
	return m.client.Set(ctx, m.key(snapshot.Pin), data, m.ttl).Err()
}

func (m *RoomMirror) DeleteRoom(ctx context.Context, pin string) error {
	return m.client.Del(ctx, m.key(pin)).Err()
}

// LoadRoom returns the mirrored snapshot, or false when none exists.
func (m *RoomMirror) LoadRoom(ctx context.Context, pin string) (domain.RoomSnapshot, bool, error) {
	data, err := m.client.Get(ctx, m.key(pin)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RoomSnapshot{}, false, nil
	}
	if err != nil {
		return domain.RoomSnapshot{}, false, err
	}
	var snapshot domain.RoomSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.RoomSnapshot{}, false, fmt.Errorf("unmarshal room %s: %w", pin, err)
	}
	return snapshot, true, nil
}

// ListRooms returns every mirrored snapshot, oldest first.
func (m *RoomMirror) ListRooms(ctx context.Context) ([]domain.RoomSnapshot, error) {
	var rooms []domain.RoomSnapshot
	iter := m.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		pin := iter.Val()[len(roomKeyPrefix):]
		snapshot, ok, err := m.LoadRoom(ctx, pin)
		if err != nil {
			return nil, err
		}
		if ok {
			rooms = append(rooms, snapshot)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (m *RoomMirror) key(pin string) string {
	return roomKeyPrefix + pin
}
