package app

import (
	"context"
	"time"

	"quizquest-service/internal/domain"
)

// ChallengeRepository loads challenge content (from cache/backing store).
type ChallengeRepository interface {
	GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
}

// ChallengeInvalidator is implemented by challenge caches that can drop a
// cached entry. SubmissionService calls it after storing a challenge.
type ChallengeInvalidator interface {
	Invalidate(ctx context.Context, challengeID string) error
}

// ChallengeCatalog lists and stores challenges in the backing store.
// SaveChallenge only creates: an id that is already stored yields
// domain.ErrChallengeExists, so attempts always grade against the questions
// they were submitted on.
type ChallengeCatalog interface {
	ListChallenges(ctx context.Context, theme string) ([]domain.Challenge, error)
	SaveChallenge(ctx context.Context, challenge domain.Challenge) error
	IncrementPlayCount(ctx context.Context, challengeID string) error
}

// AttemptRepository persists attempts. Attempts are written once and never updated.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	// ClaimFirstAttempt atomically marks the (user, challenge) pair as played
	// and reports whether this call was the first. All anonymous players
	// share the empty uid.
	ClaimFirstAttempt(ctx context.Context, userUID, challengeID string) (bool, error)
	ListAttemptsByUser(ctx context.Context, userUID string) ([]domain.Attempt, error)
	ListAttemptsByChallenge(ctx context.Context, challengeID string) ([]domain.Attempt, error)
}

// ProfileRepository owns the cumulative XP counters. ApplyXP must be an atomic
// increment keyed by grant.Key: a key that was already applied is not applied
// again and reports applied=false.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userUID string) (domain.UserProfile, error)
	GetOrCreateProfile(ctx context.Context, userUID string, defaults domain.ProfileDefaults) (domain.UserProfile, error)
	ApplyXP(ctx context.Context, grant domain.XPGrant, defaults domain.ProfileDefaults) (profile domain.UserProfile, applied bool, err error)
	TopProfiles(ctx context.Context, limit int) ([]domain.UserProfile, error)
}

// MatchRepository stores matches. SetWinner is a check-and-set: it only writes
// when no winner is stored yet and reports whether it did.
type MatchRepository interface {
	CreateMatch(ctx context.Context, match domain.Match) error
	GetMatch(ctx context.Context, matchID string) (domain.Match, error)
	AttachAttempt(ctx context.Context, matchID string, slot int, attemptID string) (domain.Match, error)
	SetWinner(ctx context.Context, matchID, winnerUID string, finishedAt time.Time) (bool, error)
}
