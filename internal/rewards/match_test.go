package rewards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizquest-service/internal/domain"
)

func readyMatch() domain.Match {
	return domain.Match{
		ID:          "m1",
		ChallengeID: "c1",
		Player1UID:  "alice",
		Player2UID:  "bob",
		Attempt1ID:  "a1",
		Attempt2ID:  "a2",
	}
}

func TestDecideWinner(t *testing.T) {
	m := readyMatch()
	tests := []struct {
		name   string
		a1, a2 domain.Attempt
		winner string
		ok     bool
	}{
		{"higher score", domain.Attempt{Score: 90, TotalTime: 300}, domain.Attempt{Score: 80, TotalTime: 10}, "alice", true},
		{"tie broken by time", domain.Attempt{Score: 90, TotalTime: 120}, domain.Attempt{Score: 90, TotalTime: 100}, "bob", true},
		{"full tie", domain.Attempt{Score: 90, TotalTime: 120}, domain.Attempt{Score: 90, TotalTime: 120}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, ok := DecideWinner(m, tt.a1, tt.a2)
			assert.Equal(t, tt.winner, winner)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	a1 := &domain.Attempt{ID: "a1", Score: 90, TotalTime: 120}
	a2 := &domain.Attempt{ID: "a2", Score: 90, TotalTime: 100}

	out := Resolve(readyMatch(), a1, a2, now)
	assert.Equal(t, domain.MatchFinished, out.State)
	assert.Equal(t, "bob", out.WinnerUID)
	require.NotNil(t, out.FinishedAt)
	assert.True(t, out.FinishedAt.Equal(now))

	tied := Resolve(readyMatch(), a1, &domain.Attempt{ID: "a2", Score: 90, TotalTime: 120}, now)
	assert.Equal(t, domain.MatchReady, tied.State)
	assert.Empty(t, tied.WinnerUID)
	assert.Nil(t, tied.FinishedAt)

	pending := readyMatch()
	pending.Attempt2ID = ""
	assert.Equal(t, domain.MatchPending, Resolve(pending, a1, nil, now).State)

	earlier := now.Add(-time.Hour)
	finished := readyMatch()
	finished.WinnerUID = "alice"
	finished.FinishedAt = &earlier
	again := Resolve(finished, a1, a2, now)
	assert.Equal(t, "alice", again.WinnerUID, "an existing winner is never replaced")
	assert.True(t, again.FinishedAt.Equal(earlier))
}
