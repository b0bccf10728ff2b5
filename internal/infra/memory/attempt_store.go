package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quizquest-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	claims   map[claimKey]struct{}
}

type claimKey struct {
	userUID     string
	challengeID string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		claims:   make(map[claimKey]struct{}),
	}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[attempt.ID]; exists {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.attempts[attemptID]; ok {
		return a, nil
	}
	return domain.Attempt{}, domain.ErrAttemptNotFound
}

// ClaimFirstAttempt reports true exactly once per (user, challenge) pair.
// Anonymous players share the empty uid.
func (s *AttemptStore) ClaimFirstAttempt(_ context.Context, userUID, challengeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := claimKey{userUID: userUID, challengeID: challengeID}
	if _, taken := s.claims[key]; taken {
		return false, nil
	}
	s.claims[key] = struct{}{}
	return true, nil
}

func (s *AttemptStore) ListAttemptsByUser(_ context.Context, userUID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool { return a.UserUID == userUID }), nil
}

func (s *AttemptStore) ListAttemptsByChallenge(_ context.Context, challengeID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool { return a.ChallengeID == challengeID }), nil
}

// filter returns matching attempts, most recent first.
func (s *AttemptStore) filter(keep func(domain.Attempt) bool) []domain.Attempt {
	s.mu.RLock()
	out := make([]domain.Attempt, 0)
	for _, a := range s.attempts {
		if keep(a) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
