package memory

import (
	"sort"
	"sync"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// RoomRegistry is an in-memory implementation of app.RoomRegistry.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*app.Room),
	}
}

func (r *RoomRegistry) Create(room *app.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.Pin()]; ok {
		return domain.ErrPinInUse
	}
	r.rooms[room.Pin()] = room
	return nil
}

func (r *RoomRegistry) Get(pin string) (*app.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[pin]
	return room, ok
}

func (r *RoomRegistry) Delete(pin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, pin)
}

// All returns the live rooms oldest first.
func (r *RoomRegistry) All() []*app.Room {
	r.mu.RLock()
	rooms := make([]*app.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt().Before(rooms[j].CreatedAt())
	})
	return rooms
}
