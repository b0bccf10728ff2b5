package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quizquest-service/internal/domain"
)

// MatchStore is an in-memory implementation of app.MatchRepository.
type MatchStore struct {
	mu      sync.Mutex
	matches map[string]domain.Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{matches: make(map[string]domain.Match)}
}

func (s *MatchStore) CreateMatch(_ context.Context, match domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.matches[match.ID]; exists {
		return fmt.Errorf("match %s already exists", match.ID)
	}
	s.matches[match.ID] = match
	return nil
}

func (s *MatchStore) GetMatch(_ context.Context, matchID string) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.matches[matchID]; ok {
		return m, nil
	}
	return domain.Match{}, domain.ErrMatchNotFound
}

// AttachAttempt fills slot 1 or 2. Re-attaching the same attempt is a no-op.
func (s *MatchStore) AttachAttempt(_ context.Context, matchID string, slot int, attemptID string) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}

	var current *string
	switch slot {
	case 1:
		current = &m.Attempt1ID
	case 2:
		current = &m.Attempt2ID
	default:
		return domain.Match{}, fmt.Errorf("invalid match slot %d", slot)
	}
	switch *current {
	case attemptID:
		return m, nil
	case "":
		*current = attemptID
	default:
		return domain.Match{}, domain.ErrSlotTaken
	}
	s.matches[matchID] = m
	return m, nil
}

// SetWinner records the winner only while none is stored.
func (s *MatchStore) SetWinner(_ context.Context, matchID, winnerUID string, finishedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return false, domain.ErrMatchNotFound
	}
	if m.WinnerUID != "" {
		return false, nil
	}
	m.WinnerUID = winnerUID
	m.FinishedAt = &finishedAt
	s.matches[matchID] = m
	return true, nil
}
