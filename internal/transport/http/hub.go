package http

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"quiz-room-service/internal/app"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub tracks live connections and the room groups they belong to, and
// carries out the instructions produced by the room engine.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]*client
	groups map[string]map[string]struct{} // pin -> connection ids
	log    zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*client),
		groups: make(map[string]map[string]struct{}),
		log:    log,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

// unregister forgets the connection and closes its send queue if the hub
// has not already done so.
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[id]; ok {
		h.dropLocked(c)
	}
}

// ConnectionCount reports how many connections are registered.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Dispatch executes instructions in order. It never blocks on a slow client:
// a connection whose queue is full is closed instead.
func (h *Hub) Dispatch(instructions []app.Instruction) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ins := range instructions {
		switch ins.Op {
		case app.OpSend:
			if c, ok := h.conns[ins.ConnectionID]; ok {
				if msg, ok := h.encode(ins); ok {
					h.enqueueLocked(c, msg)
				}
			}
		case app.OpBroadcast:
			members := h.groups[ins.Pin]
			if len(members) == 0 {
				continue
			}
			msg, ok := h.encode(ins)
			if !ok {
				continue
			}
			for id := range members {
				if c, ok := h.conns[id]; ok {
					h.enqueueLocked(c, msg)
				}
			}
		case app.OpJoinGroup:
			if _, ok := h.conns[ins.ConnectionID]; !ok {
				continue
			}
			members, ok := h.groups[ins.Pin]
			if !ok {
				members = make(map[string]struct{})
				h.groups[ins.Pin] = members
			}
			members[ins.ConnectionID] = struct{}{}
		case app.OpLeaveGroup:
			h.leaveLocked(ins.ConnectionID, ins.Pin)
		case app.OpDropGroup:
			delete(h.groups, ins.Pin)
		default:
			h.log.Warn().Stringer("op", ins.Op).Msg("unknown instruction")
		}
	}
}

func (h *Hub) encode(ins app.Instruction) ([]byte, bool) {
	msg, err := json.Marshal(outboundMessage{Type: ins.Event, Payload: ins.Payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", ins.Event).Msg("encode outbound message")
		return nil, false
	}
	return msg, true
}

func (h *Hub) enqueueLocked(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn().Str("conn", c.id).Msg("send buffer full, closing connection")
		h.dropLocked(c)
	}
}

func (h *Hub) leaveLocked(connID, pin string) {
	members, ok := h.groups[pin]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, pin)
	}
}

// dropLocked removes c everywhere and closes its send channel. It runs at
// most once per client since c is no longer reachable afterwards.
func (h *Hub) dropLocked(c *client) {
	delete(h.conns, c.id)
	for pin, members := range h.groups {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.groups, pin)
		}
	}
	close(c.send)
}
