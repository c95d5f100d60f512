package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	disconnectTimeout = 5 * time.Second
)

// RoomEngine is the part of app.Engine the transport needs.
type RoomEngine interface {
	Submit(ctx context.Context, connID string, cmd app.Command) error
	Inspect(ctx context.Context, pin string) (domain.RoomInfo, error)
}

// GatewayConfig tunes connection handling.
type GatewayConfig struct {
	AllowedOrigins    []string
	MessagesPerSecond float64
	Burst             int
	SendBuffer        int
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.MessagesPerSecond <= 0 {
		c.MessagesPerSecond = 20
	}
	if c.Burst <= 0 {
		c.Burst = 40
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	return c
}

type handlerFunc func(ctx context.Context, payload json.RawMessage) (app.Command, error)

// Gateway upgrades websocket connections, turns inbound events into engine
// commands and lets the Hub deliver the replies.
type Gateway struct {
	engine   RoomEngine
	hub      *Hub
	quizzes  app.QuizRepository
	cfg      GatewayConfig
	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
	log      zerolog.Logger
}

// NewGateway builds a Gateway. quizzes may be nil, in which case createRoom
// only accepts inline questions.
func NewGateway(engine RoomEngine, hub *Hub, quizzes app.QuizRepository, cfg GatewayConfig, log zerolog.Logger) *Gateway {
	cfg = cfg.withDefaults()
	g := &Gateway{
		engine:  engine,
		hub:     hub,
		quizzes: quizzes,
		cfg:     cfg,
		log:     log,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(cfg.AllowedOrigins, origin)
		},
	}
	g.handlers = map[string]handlerFunc{
		"createRoom":  g.handleCreateRoom,
		"joinRoom":    handleJoinRoom,
		"startQuiz":   handleStartQuiz,
		"submitScore": handleSubmitScore,
		"getRoomInfo": handleGetRoomInfo,
	}
	return g
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServeWS upgrades the request and runs the connection until it closes.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, g.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(g.cfg.MessagesPerSecond), g.cfg.Burst),
	}
	g.hub.register(c)
	g.log.Debug().Str("conn", c.id).Str("remote", r.RemoteAddr).Msg("client connected")

	go g.writePump(c)
	g.readPump(r.Context(), c)
}

func (g *Gateway) readPump(ctx context.Context, c *client) {
	defer func() {
		g.hub.unregister(c.id)
		c.conn.Close()

		// The request context may already be gone; the room still has to hear about it.
		dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		if err := g.engine.Submit(dctx, c.id, app.Disconnect{}); err != nil {
			g.log.Warn().Err(err).Str("conn", c.id).Msg("submit disconnect")
		}
		g.log.Debug().Str("conn", c.id).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Debug().Err(err).Str("conn", c.id).Msg("ws read error")
			}
			return
		}

		if !c.limiter.Allow() {
			g.hub.Dispatch([]app.Instruction{app.ErrorInstruction(c.id, domain.ErrRateLimited)})
			continue
		}

		cmd := g.decode(ctx, data)
		if err := g.engine.Submit(ctx, c.id, cmd); err != nil {
			if !errors.Is(err, context.Canceled) {
				g.log.Warn().Err(err).Str("conn", c.id).Msg("submit command")
			}
			return
		}
	}
}

// decode maps a raw frame onto the command to run. Anything that cannot be
// turned into a room transition becomes a Reject.
func (g *Gateway) decode(ctx context.Context, data []byte) app.Command {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		return app.Reject{Err: domain.InvalidPayload("Malformed message")}
	}
	handle, ok := g.handlers[msg.Type]
	if !ok {
		return app.Reject{Err: domain.ErrUnknownEvent}
	}
	cmd, err := handle(ctx, msg.Payload)
	if err != nil {
		return app.Reject{Err: err}
	}
	return cmd
}

func (g *Gateway) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// originAllowed matches origin against the allow-list. An empty list allows
// everything; an entry may hold a single "*" wildcard, e.g. https://*.netlify.app.
func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, pattern := range allowed {
		if pattern == "*" || strings.EqualFold(pattern, origin) {
			return true
		}
		prefix, suffix, found := strings.Cut(pattern, "*")
		if found && len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}
