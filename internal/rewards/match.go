package rewards

import (
	"time"

	"quizquest-service/internal/domain"
)

// DecideWinner compares player one's attempt with player two's: the higher score
// wins, then the lower total time. A full tie has no winner.
func DecideWinner(m domain.Match, a1, a2 domain.Attempt) (string, bool) {
	switch {
	case a1.Score > a2.Score:
		return m.Player1UID, true
	case a2.Score > a1.Score:
		return m.Player2UID, true
	case a1.TotalTime < a2.TotalTime:
		return m.Player1UID, true
	case a2.TotalTime < a1.TotalTime:
		return m.Player2UID, true
	}
	return "", false
}

// Resolve computes a match outcome without side effects. A match that already
// has a winner is reported as stored; a tied match stays ready.
func Resolve(m domain.Match, a1, a2 *domain.Attempt, now time.Time) domain.MatchOutcome {
	out := domain.MatchOutcome{MatchID: m.ID, State: m.State()}
	if m.WinnerUID != "" {
		out.WinnerUID = m.WinnerUID
		out.FinishedAt = m.FinishedAt
		return out
	}
	if out.State != domain.MatchReady || a1 == nil || a2 == nil {
		return out
	}

	winner, ok := DecideWinner(m, *a1, *a2)
	if !ok {
		return out
	}
	finished := now
	out.State = domain.MatchFinished
	out.WinnerUID = winner
	out.FinishedAt = &finished
	return out
}
