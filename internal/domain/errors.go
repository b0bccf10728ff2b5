package domain

import "errors"

var (
	// ErrChallengeNotFound indicates the challenge content could not be loaded.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrAttemptNotFound is returned when an attempt id is unknown.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrProfileNotFound is returned when a user has no profile yet.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrMatchNotFound is returned when a match id is unknown.
	ErrMatchNotFound = errors.New("match not found")
	// ErrNotMatchPlayer indicates the attempt owner is not one of the match players.
	ErrNotMatchPlayer = errors.New("attempt owner is not a player in this match")
	// ErrSlotTaken indicates the player's attempt slot is already filled.
	ErrSlotTaken = errors.New("match attempt slot already filled")
	// ErrChallengeMismatch indicates the attempt was made on a different challenge.
	ErrChallengeMismatch = errors.New("attempt challenge does not match")
	// ErrInvalidMatch indicates a match request with missing or identical players.
	ErrInvalidMatch = errors.New("invalid match")
	// ErrChallengeExists is returned when storing a challenge under an id that is already taken.
	ErrChallengeExists = errors.New("challenge already exists")
	// ErrInvalidChallenge wraps ingestion validation failures.
	ErrInvalidChallenge = errors.New("invalid challenge")
)
