package app

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"quizquest-service/internal/domain"
	"quizquest-service/internal/grading"
	"quizquest-service/internal/rewards"
)

// SubmissionService contains the challenge, attempt and profile use cases.
type SubmissionService struct {
	challenges ChallengeRepository
	catalog    ChallengeCatalog
	attempts   AttemptRepository
	profiles   ProfileRepository
	opts       options
	rewards    rewarder
}

func NewSubmissionService(challenges ChallengeRepository, catalog ChallengeCatalog, attempts AttemptRepository, profiles ProfileRepository, opts ...Option) *SubmissionService {
	s := &SubmissionService{
		challenges: challenges,
		catalog:    catalog,
		attempts:   attempts,
		profiles:   profiles,
		opts:       buildOptions(opts),
	}
	s.rewards = rewarder{profiles: profiles, opts: &s.opts}
	return s
}

// SubmitAttempt grades a submission against the stored challenge, persists the
// attempt and credits XP to the submitting user. Scores and XP are always
// derived here; nothing score-like is taken from the client. Anonymous
// submissions count as one player, so only the first anonymous attempt on a
// challenge earns the first-time bonus.
func (s *SubmissionService) SubmitAttempt(ctx context.Context, sub domain.AttemptSubmission) (domain.AttemptResult, error) {
	challenge, err := s.challenges.GetChallenge(ctx, sub.ChallengeID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	graded := grading.GradeAttempt(challenge.Questions, sub.Answers)

	// One claim per (user, challenge), taken before the attempt is stored.
	isFirst, err := s.attempts.ClaimFirstAttempt(ctx, sub.UserUID, challenge.ID)
	if err != nil {
		return domain.AttemptResult{}, fmt.Errorf("claim first attempt: %w", err)
	}
	xp := rewards.ComputeXP(graded.Score, challenge.Difficulty, isFirst)

	now := s.opts.now()
	submitted := sub.Answers
	if submitted == nil {
		submitted = []domain.SubmittedAnswer{}
	}
	attempt := domain.Attempt{
		ID:               s.opts.newID(),
		ChallengeID:      challenge.ID,
		UserUID:          sub.UserUID,
		SubmittedAnswers: submitted,
		Answers:          graded.Answers,
		Score:            graded.Score,
		TotalTime:        graded.TotalTime,
		XPEarned:         xp.TotalXP,
		StartedAt:        sub.StartedAt,
		CompletedAt:      now,
		CreatedAt:        now,
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return domain.AttemptResult{}, fmt.Errorf("store attempt: %w", err)
	}
	if err := s.catalog.IncrementPlayCount(ctx, challenge.ID); err != nil {
		s.opts.log.WithError(err).WithField("challenge", challenge.ID).Warn("play count not updated")
	}
	s.opts.metrics.ObserveAttempt(string(challenge.Difficulty), graded.Score)

	s.opts.log.WithFields(logrus.Fields{
		"attempt":   attempt.ID,
		"challenge": challenge.ID,
		"user_uid":  attempt.UserUID,
		"score":     attempt.Score,
		"xp":        xp.TotalXP,
	}).Info("attempt graded")

	result := domain.AttemptResult{Attempt: attempt, XPBreakdown: xp}
	if attempt.IsAnonymous() {
		return result, nil
	}

	profile, _, err := s.rewards.grant(ctx, domain.XPGrant{
		Key:        attemptGrantKey(attempt.ID),
		UserUID:    attempt.UserUID,
		Amount:     xp.TotalXP,
		Completion: true,
	}, sub.Defaults)
	if err != nil {
		return result, err
	}
	total := profile.TotalXP
	result.NewTotalXP = &total
	return result, nil
}

// GetAttempt returns a stored attempt.
func (s *SubmissionService) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	return s.attempts.GetAttempt(ctx, attemptID)
}

// RegradeAttempt grades the stored audit copy again and reports whether the
// fresh result agrees with what was stored. Nothing is written.
func (s *SubmissionService) RegradeAttempt(ctx context.Context, attemptID string) (domain.RegradeReport, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.RegradeReport{}, err
	}
	challenge, err := s.challenges.GetChallenge(ctx, attempt.ChallengeID)
	if err != nil {
		return domain.RegradeReport{}, err
	}

	regraded := grading.GradeAttempt(challenge.Questions, attempt.SubmittedAnswers)
	report := domain.RegradeReport{
		AttemptID:   attempt.ID,
		StoredScore: attempt.Score,
		Regraded:    regraded,
		Consistent:  sameGrading(attempt, regraded),
	}
	if !report.Consistent {
		s.opts.log.WithFields(logrus.Fields{
			"attempt":  attempt.ID,
			"stored":   attempt.Score,
			"regraded": regraded.Score,
		}).Warn("regrade differs from stored attempt")
	}
	return report, nil
}

func sameGrading(stored domain.Attempt, fresh domain.GradedResult) bool {
	if stored.Score != fresh.Score || stored.TotalTime != fresh.TotalTime || len(stored.Answers) != len(fresh.Answers) {
		return false
	}
	for i, a := range stored.Answers {
		b := fresh.Answers[i]
		if a.QuestionID != b.QuestionID || a.IsCorrect != b.IsCorrect || a.PointsEarned != b.PointsEarned {
			return false
		}
	}
	return true
}

// GetChallenge returns a challenge by id.
func (s *SubmissionService) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	return s.challenges.GetChallenge(ctx, challengeID)
}

// ListChallenges returns published challenges, optionally restricted to a theme.
func (s *SubmissionService) ListChallenges(ctx context.Context, theme string) ([]domain.Challenge, error) {
	all, err := s.catalog.ListChallenges(ctx, theme)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	published := make([]domain.Challenge, 0, len(all))
	for _, c := range all {
		if c.IsPublished && (theme == "" || c.Theme == theme) {
			published = append(published, c)
		}
	}
	return published, nil
}

// ChallengeStats summarizes every attempt made on a challenge. The average
// rating maps the average score onto a five-point scale.
func (s *SubmissionService) ChallengeStats(ctx context.Context, challengeID string) (domain.ChallengeStats, error) {
	if _, err := s.challenges.GetChallenge(ctx, challengeID); err != nil {
		return domain.ChallengeStats{}, err
	}
	attempts, err := s.attempts.ListAttemptsByChallenge(ctx, challengeID)
	if err != nil {
		return domain.ChallengeStats{}, fmt.Errorf("list attempts: %w", err)
	}

	stats := domain.ChallengeStats{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return stats, nil
	}
	sum := 0
	for _, a := range attempts {
		sum += a.Score
	}
	avg := float64(sum) / float64(len(attempts))
	stats.AverageRating = math.Round(avg/20*10) / 10
	return stats, nil
}

// ImportChallenges validates and stores a batch. Invalid challenges and ids
// that are already taken are reported by their position; the rest are saved.
func (s *SubmissionService) ImportChallenges(ctx context.Context, challenges []domain.Challenge) (domain.ImportReport, error) {
	report := domain.ImportReport{
		Created: []domain.Challenge{},
		Errors:  []domain.ImportError{},
	}
	for i, c := range challenges {
		if c.ID == "" {
			c.ID = s.opts.newID()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.opts.now()
		}
		if err := domain.ValidateChallenge(c); err != nil {
			report.Errors = append(report.Errors, domain.ImportError{Index: i, Message: err.Error()})
			continue
		}
		if err := s.catalog.SaveChallenge(ctx, c); err != nil {
			if errors.Is(err, domain.ErrChallengeExists) {
				report.Errors = append(report.Errors, domain.ImportError{Index: i, Message: err.Error()})
				continue
			}
			return report, fmt.Errorf("save challenge %s: %w", c.ID, err)
		}
		s.invalidate(ctx, c.ID)
		report.Created = append(report.Created, c)
	}

	s.opts.log.WithFields(logrus.Fields{
		"created":  len(report.Created),
		"rejected": len(report.Errors),
	}).Info("challenges imported")
	return report, nil
}

// invalidate drops any cached copy left under a newly stored id, for example
// by a Redis cache that outlived the database it was filled from.
func (s *SubmissionService) invalidate(ctx context.Context, challengeID string) {
	inv, ok := s.challenges.(ChallengeInvalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, challengeID); err != nil {
		s.opts.log.WithError(err).WithField("challenge", challengeID).Warn("challenge cache not invalidated")
	}
}

// GetProfile returns a profile together with statistics over its attempts.
func (s *SubmissionService) GetProfile(ctx context.Context, userUID string) (domain.ProfileSummary, error) {
	profile, err := s.profiles.GetProfile(ctx, userUID)
	if err != nil {
		return domain.ProfileSummary{}, err
	}
	attempts, err := s.attempts.ListAttemptsByUser(ctx, userUID)
	if err != nil {
		return domain.ProfileSummary{}, fmt.Errorf("list attempts: %w", err)
	}
	return domain.ProfileSummary{UserProfile: profile, ProfileStats: profileStats(attempts)}, nil
}

func profileStats(attempts []domain.Attempt) domain.ProfileStats {
	var stats domain.ProfileStats
	if len(attempts) == 0 {
		return stats
	}
	totalTime := 0
	stats.FastestTime = attempts[0].TotalTime
	for _, a := range attempts {
		stats.TotalScore += a.Score
		totalTime += a.TotalTime
		stats.FastestTime = min(stats.FastestTime, a.TotalTime)
	}
	stats.AverageTime = totalTime / len(attempts)
	return stats
}

// Leaderboard returns the top profiles by XP.
func (s *SubmissionService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	return s.rewards.leaderboard(ctx, limit)
}

// Subscribe returns a channel of leaderboard snapshots, starting with the
// current one. The caller must invoke the returned cancel function.
func (s *SubmissionService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	if s.opts.feed == nil {
		return nil, nil, fmt.Errorf("leaderboard feed not configured")
	}
	initial, err := s.rewards.leaderboard(ctx, DefaultLeaderboardSize)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.opts.feed.subscribe(initial)
	return ch, cancel, nil
}
