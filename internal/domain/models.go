package domain

import (
	"encoding/json"
	"time"
)

// GuestName is the join name that asks the room to assign the next free "Guest N" label.
const GuestName = "Guest"

// HostName is the display name given to the room creator.
const HostName = "Host"

// QuestionList is an ordered list of opaque question records. The room never inspects them.
type QuestionList []json.RawMessage

// Player is one participant inside a room.
type Player struct {
	ConnectionID string `json:"id"`
	DisplayName  string `json:"name"`
	IsHost       bool   `json:"isHost"`
	Score        int    `json:"score"`
	Total        int    `json:"total"`
}

// Result is the first score a player reported for a room.
type Result struct {
	ConnectionID string `json:"id"`
	DisplayName  string `json:"name"`
	Score        int    `json:"score"`
	Total        int    `json:"total"`
	Percentage   int    `json:"percentage"`
}

// RoomInfo is the read-only diagnostic view of a room.
type RoomInfo struct {
	Pin           string   `json:"pin"`
	Players       []Player `json:"players"`
	IsStarted     bool     `json:"isStarted"`
	QuestionCount int      `json:"questionCount"`
}

// RoomSnapshot is what gets mirrored to external stores for operators.
type RoomSnapshot struct {
	Pin           string    `json:"pin"`
	HostID        string    `json:"hostId"`
	Players       []Player  `json:"players"`
	Results       []Result  `json:"results"`
	IsStarted     bool      `json:"isStarted"`
	Finished      bool      `json:"finished"`
	QuestionCount int       `json:"questionCount"`
	TimeLimit     int       `json:"timeLimit"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Quiz is a stored question set that a host can open a room with by ID.
type Quiz struct {
	ID        string       `json:"id"`
	Title     string       `json:"title,omitempty"`
	Questions QuestionList `json:"questions"`
	TimeLimit int          `json:"timeLimit,omitempty"` // seconds, advisory
}
