package app

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"quiz-room-service/internal/domain"
)

// Room is the state of one live quiz session.
//
// A Room is not safe for concurrent use. Every read and write happens on the
// Engine goroutine, which runs one transition to completion before the next.
type Room struct {
	pin       string
	hostID    string
	questions domain.QuestionList
	timeLimit int
	createdAt time.Time

	players  []*domain.Player
	results  []domain.Result
	started  bool
	finished bool
}

// NewRoom builds a room in the lobby with its creator as the only player.
func NewRoom(pin, hostID string, questions domain.QuestionList, timeLimit int, createdAt time.Time) *Room {
	return &Room{
		pin:       pin,
		hostID:    hostID,
		questions: questions,
		timeLimit: timeLimit,
		createdAt: createdAt,
		players: []*domain.Player{{
			ConnectionID: hostID,
			DisplayName:  domain.HostName,
			IsHost:       true,
		}},
	}
}

func (r *Room) Pin() string          { return r.pin }
func (r *Room) HostID() string       { return r.hostID }
func (r *Room) CreatedAt() time.Time { return r.createdAt }
func (r *Room) IsStarted() bool      { return r.started }
func (r *Room) PlayerCount() int     { return len(r.players) }

// Players returns a copy of the player list in join order.
func (r *Room) Players() []domain.Player {
	out := make([]domain.Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

// Results returns a copy of the recorded results in their current order.
func (r *Room) Results() []domain.Result {
	out := make([]domain.Result, len(r.results))
	copy(out, r.results)
	return out
}

// Info is the diagnostic view served by getRoomInfo.
func (r *Room) Info() domain.RoomInfo {
	return domain.RoomInfo{
		Pin:           r.pin,
		Players:       r.Players(),
		IsStarted:     r.started,
		QuestionCount: len(r.questions),
	}
}

// Snapshot captures everything an operator might want to see about the room.
func (r *Room) Snapshot() domain.RoomSnapshot {
	return domain.RoomSnapshot{
		Pin:           r.pin,
		HostID:        r.hostID,
		Players:       r.Players(),
		Results:       r.Results(),
		IsStarted:     r.started,
		Finished:      r.finished,
		QuestionCount: len(r.questions),
		TimeLimit:     r.timeLimit,
		CreatedAt:     r.createdAt,
	}
}

func (r *Room) indexOf(connID string) int {
	for i, p := range r.players {
		if p.ConnectionID == connID {
			return i
		}
	}
	return -1
}

func (r *Room) hasMember(connID string) bool {
	return r.indexOf(connID) >= 0
}

// resolveName turns a requested join name into the display name the player gets.
func (r *Room) resolveName(requested string) (string, error) {
	if requested == domain.GuestName {
		return r.nextGuestName(), nil
	}
	for _, p := range r.players {
		if strings.EqualFold(p.DisplayName, requested) {
			return "", domain.ErrNameTaken
		}
	}
	return requested, nil
}

// nextGuestName starts after the number of existing guest labels and skips
// past any exact collision.
func (r *Room) nextGuestName() string {
	n := 1
	for _, p := range r.players {
		if strings.HasPrefix(p.DisplayName, domain.GuestName+" ") {
			n++
		}
	}
	for {
		name := domain.GuestName + " " + strconv.Itoa(n)
		if !r.hasExactName(name) {
			return name
		}
		n++
	}
}

func (r *Room) hasExactName(name string) bool {
	for _, p := range r.players {
		if p.DisplayName == name {
			return true
		}
	}
	return false
}

func (r *Room) addPlayer(connID, name string) {
	r.players = append(r.players, &domain.Player{
		ConnectionID: connID,
		DisplayName:  name,
	})
}

func (r *Room) start(connID string) error {
	if connID != r.hostID {
		return domain.ErrNotHost
	}
	if r.started {
		return domain.ErrAlreadyStarted
	}
	if len(r.players) < 2 {
		return domain.ErrInsufficientPlayers
	}
	r.started = true
	return nil
}

// submit records a score. It reports whether the connection is a member and
// whether this submission completed the room. The room completes when the
// number of results equals the number of players in the room at that moment.
// Results of departed players still count.
func (r *Room) submit(connID string, score, total int) (member, completed bool) {
	i := r.indexOf(connID)
	if i < 0 {
		return false, false
	}
	p := r.players[i]
	p.Score = score
	p.Total = total

	if !r.hasResult(connID) {
		r.results = append(r.results, domain.Result{
			ConnectionID: connID,
			DisplayName:  p.DisplayName,
			Score:        score,
			Total:        total,
			Percentage:   percentage(score, total),
		})
	}

	if r.finished || len(r.results) != len(r.players) {
		return true, false
	}
	sort.SliceStable(r.results, func(i, j int) bool {
		return r.results[i].Score > r.results[j].Score
	})
	r.finished = true
	return true, true
}

func (r *Room) hasResult(connID string) bool {
	for _, res := range r.results {
		if res.ConnectionID == connID {
			return true
		}
	}
	return false
}

func (r *Room) removePlayer(connID string) bool {
	i := r.indexOf(connID)
	if i < 0 {
		return false
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	return true
}

// percentage rounds half up, with a zero total scoring 0%.
func percentage(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(score)/float64(total)*100 + 0.5))
}
