package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"quizquest-service/internal/domain"
	"quizquest-service/internal/rewards"
)

// MatchService runs head-to-head matches on top of stored attempts.
type MatchService struct {
	challenges ChallengeRepository
	attempts   AttemptRepository
	matches    MatchRepository
	opts       options
	rewards    rewarder
}

func NewMatchService(challenges ChallengeRepository, attempts AttemptRepository, matches MatchRepository, profiles ProfileRepository, opts ...Option) *MatchService {
	s := &MatchService{
		challenges: challenges,
		attempts:   attempts,
		matches:    matches,
		opts:       buildOptions(opts),
	}
	s.rewards = rewarder{profiles: profiles, opts: &s.opts}
	return s
}

// CreateMatch opens a pending match between two distinct players.
func (s *MatchService) CreateMatch(ctx context.Context, challengeID, player1, player2 string) (domain.Match, error) {
	if player1 == "" || player2 == "" || player1 == player2 {
		return domain.Match{}, fmt.Errorf("%w: two distinct players are required", domain.ErrInvalidMatch)
	}
	if _, err := s.challenges.GetChallenge(ctx, challengeID); err != nil {
		return domain.Match{}, err
	}

	match := domain.Match{
		ID:          s.opts.newID(),
		ChallengeID: challengeID,
		Player1UID:  player1,
		Player2UID:  player2,
		CreatedAt:   s.opts.now(),
	}
	if err := s.matches.CreateMatch(ctx, match); err != nil {
		return domain.Match{}, fmt.Errorf("store match: %w", err)
	}
	return match, nil
}

// GetMatch returns a stored match.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	return s.matches.GetMatch(ctx, matchID)
}

// SubmitMatchAttempt attaches an attempt to its owner's slot and resolves the
// match if both slots are now filled.
func (s *MatchService) SubmitMatchAttempt(ctx context.Context, matchID, attemptID string) (domain.MatchOutcome, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return domain.MatchOutcome{}, err
	}
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.MatchOutcome{}, err
	}
	if attempt.ChallengeID != match.ChallengeID {
		return domain.MatchOutcome{}, domain.ErrChallengeMismatch
	}

	var slot int
	switch {
	case attempt.IsAnonymous():
		return domain.MatchOutcome{}, domain.ErrNotMatchPlayer
	case attempt.UserUID == match.Player1UID:
		slot = 1
	case attempt.UserUID == match.Player2UID:
		slot = 2
	default:
		return domain.MatchOutcome{}, domain.ErrNotMatchPlayer
	}

	wasPending := match.State() == domain.MatchPending
	match, err = s.matches.AttachAttempt(ctx, matchID, slot, attemptID)
	if err != nil {
		return domain.MatchOutcome{}, err
	}
	return s.resolve(ctx, match, wasPending && match.State() == domain.MatchReady)
}

// ResolveMatch decides a ready match. It is safe to call any number of times:
// the winner is recorded once and the bonus is credited once.
func (s *MatchService) ResolveMatch(ctx context.Context, matchID string) (domain.MatchOutcome, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return domain.MatchOutcome{}, err
	}
	return s.resolve(ctx, match, false)
}

// resolve decides match. justReady is set only by the attach that filled the
// second slot, so a tie is counted once however often it is re-resolved.
func (s *MatchService) resolve(ctx context.Context, match domain.Match, justReady bool) (domain.MatchOutcome, error) {
	now := s.opts.now()
	switch match.State() {
	case domain.MatchPending:
		return rewards.Resolve(match, nil, nil, now), nil
	case domain.MatchFinished:
		// The winner may have been stored by a call that failed before crediting.
		out := rewards.Resolve(match, nil, nil, now)
		awarded, err := s.awardWinner(ctx, match.ID, match.WinnerUID)
		if err != nil {
			return out, err
		}
		out.BonusAwarded = awarded
		return out, nil
	}

	a1, err := s.attempts.GetAttempt(ctx, match.Attempt1ID)
	if err != nil {
		return domain.MatchOutcome{}, fmt.Errorf("load attempt %s: %w", match.Attempt1ID, err)
	}
	a2, err := s.attempts.GetAttempt(ctx, match.Attempt2ID)
	if err != nil {
		return domain.MatchOutcome{}, fmt.Errorf("load attempt %s: %w", match.Attempt2ID, err)
	}

	out := rewards.Resolve(match, &a1, &a2, now)
	if out.State != domain.MatchFinished {
		if justReady {
			s.opts.metrics.MatchResolved("tie")
		}
		return out, nil
	}

	won, err := s.matches.SetWinner(ctx, match.ID, out.WinnerUID, *out.FinishedAt)
	if err != nil {
		return domain.MatchOutcome{}, fmt.Errorf("set winner: %w", err)
	}
	if !won {
		current, err := s.matches.GetMatch(ctx, match.ID)
		if err != nil {
			return domain.MatchOutcome{}, err
		}
		return rewards.Resolve(current, nil, nil, now), nil
	}

	s.opts.metrics.MatchResolved("winner")
	s.opts.log.WithFields(logrus.Fields{
		"match":  match.ID,
		"winner": out.WinnerUID,
	}).Info("match finished")

	awarded, err := s.awardWinner(ctx, match.ID, out.WinnerUID)
	if err != nil {
		return out, err
	}
	out.BonusAwarded = awarded
	return out, nil
}

func (s *MatchService) awardWinner(ctx context.Context, matchID, winnerUID string) (bool, error) {
	_, applied, err := s.rewards.grant(ctx, domain.XPGrant{
		Key:     matchGrantKey(matchID),
		UserUID: winnerUID,
		Amount:  rewards.MatchWinnerBonus,
	}, domain.ProfileDefaults{})
	return applied, err
}
