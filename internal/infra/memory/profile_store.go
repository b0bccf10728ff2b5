package memory

import (
	"context"
	"sync"
	"time"

	"quizquest-service/internal/domain"
)

// ProfileStore keeps profiles and the set of applied XP grant keys under one
// lock, so a grant is checked and applied atomically.
type ProfileStore struct {
	mu       sync.Mutex
	now      func() time.Time
	profiles map[string]domain.UserProfile
	ledger   map[string]struct{}
}

func NewProfileStore() *ProfileStore {
	return NewProfileStoreWithClock(time.Now)
}

// NewProfileStoreWithClock is test-only for deterministic timestamps.
func NewProfileStoreWithClock(now func() time.Time) *ProfileStore {
	return &ProfileStore{
		now:      now,
		profiles: make(map[string]domain.UserProfile),
		ledger:   make(map[string]struct{}),
	}
}

func (s *ProfileStore) GetProfile(_ context.Context, userUID string) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userUID]; ok {
		return p, nil
	}
	return domain.UserProfile{}, domain.ErrProfileNotFound
}

func (s *ProfileStore) GetOrCreateProfile(_ context.Context, userUID string, defaults domain.ProfileDefaults) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(userUID, defaults), nil
}

func (s *ProfileStore) ApplyXP(_ context.Context, grant domain.XPGrant, defaults domain.ProfileDefaults) (domain.UserProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.getOrCreateLocked(grant.UserUID, defaults)
	if _, done := s.ledger[grant.Key]; done {
		return profile, false, nil
	}
	s.ledger[grant.Key] = struct{}{}

	profile.TotalXP += grant.Amount
	if grant.Completion {
		profile.ChallengesCompleted++
	}
	profile.UpdatedAt = s.now()
	s.profiles[grant.UserUID] = profile
	return profile, true, nil
}

// TopProfiles returns every profile; ranking and truncation happen in the app.
func (s *ProfileStore) TopProfiles(_ context.Context, _ int) ([]domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (s *ProfileStore) getOrCreateLocked(userUID string, defaults domain.ProfileDefaults) domain.UserProfile {
	if p, ok := s.profiles[userUID]; ok {
		return p
	}
	defaults = defaults.WithFallbacks()
	p := domain.UserProfile{
		UID:         userUID,
		DisplayName: defaults.DisplayName,
		Email:       defaults.Email,
		UpdatedAt:   s.now(),
	}
	s.profiles[userUID] = p
	return p
}
