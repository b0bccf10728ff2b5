package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quizquest-service/internal/domain"
)

// ChallengeStore keeps challenges in a map. It serves as the loader behind
// ChallengeRepository and as the app's ChallengeCatalog.
type ChallengeStore struct {
	mu         sync.RWMutex
	challenges map[string]domain.Challenge
}

func NewChallengeStore(seed ...domain.Challenge) *ChallengeStore {
	s := &ChallengeStore{challenges: make(map[string]domain.Challenge, len(seed))}
	for _, c := range seed {
		s.challenges[c.ID] = c
	}
	return s
}

func (s *ChallengeStore) LoadChallenge(_ context.Context, challengeID string) (domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.challenges[challengeID]; ok {
		return c, nil
	}
	return domain.Challenge{}, domain.ErrChallengeNotFound
}

// ListChallenges returns challenges newest first, filtered by theme when set.
func (s *ChallengeStore) ListChallenges(_ context.Context, theme string) ([]domain.Challenge, error) {
	s.mu.RLock()
	out := make([]domain.Challenge, 0, len(s.challenges))
	for _, c := range s.challenges {
		if theme == "" || c.Theme == theme {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveChallenge adds a new challenge. Stored challenges are never replaced.
func (s *ChallengeStore) SaveChallenge(_ context.Context, challenge domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[challenge.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrChallengeExists, challenge.ID)
	}
	s.challenges[challenge.ID] = challenge
	return nil
}

func (s *ChallengeStore) IncrementPlayCount(_ context.Context, challengeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[challengeID]
	if !ok {
		return domain.ErrChallengeNotFound
	}
	c.PlayCount++
	s.challenges[challengeID] = c
	return nil
}
