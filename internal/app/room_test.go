package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quiz-room-service/internal/domain"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{5, 5, 100},
		{4, 5, 80},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds up
		{0, 0, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percentage(tt.score, tt.total), "%d/%d", tt.score, tt.total)
	}
}

func TestNextGuestNameSkipsCollisions(t *testing.T) {
	r := NewRoom("123456", "h", nil, 0, time.Now())
	r.addPlayer("a", "Guest 2")

	// One existing guest label, so numbering starts at 2, which is taken.
	assert.Equal(t, "Guest 3", r.nextGuestName())

	r.addPlayer("b", "Guest 3")
	assert.Equal(t, "Guest 4", r.nextGuestName())
}

func TestResolveName(t *testing.T) {
	r := NewRoom("123456", "h", nil, 0, time.Now())
	r.addPlayer("a", "Alice")

	name, err := r.resolveName("Bob")
	assert.NoError(t, err)
	assert.Equal(t, "Bob", name)

	_, err = r.resolveName("aLiCe")
	assert.ErrorIs(t, err, domain.ErrNameTaken)

	name, err = r.resolveName(domain.GuestName)
	assert.NoError(t, err)
	assert.Equal(t, "Guest 1", name)
}

func TestSnapshotCopiesState(t *testing.T) {
	created := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	r := NewRoom("123456", "h", domain.QuestionList{[]byte(`{}`)}, 45, created)
	r.addPlayer("a", "Alice")
	r.submit("a", 1, 1)

	snap := r.Snapshot()
	snap.Players[0].DisplayName = "changed"

	assert.Equal(t, "Host", r.Players()[0].DisplayName)
	assert.Equal(t, "h", snap.HostID)
	assert.Equal(t, 1, snap.QuestionCount)
	assert.Equal(t, 45, snap.TimeLimit)
	assert.Equal(t, created, snap.CreatedAt)
	assert.Len(t, snap.Results, 1)
	assert.False(t, snap.Finished)
}
