package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"quizquest-service/internal/domain"
)

// rewarder is the single path through which XP reaches a profile.
type rewarder struct {
	profiles ProfileRepository
	opts     *options
}

func attemptGrantKey(attemptID string) string { return "attempt:" + attemptID }

func matchGrantKey(matchID string) string { return "match:" + matchID }

func (r rewarder) grant(ctx context.Context, g domain.XPGrant, defaults domain.ProfileDefaults) (domain.UserProfile, bool, error) {
	profile, applied, err := r.profiles.ApplyXP(ctx, g, defaults.WithFallbacks())
	if err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("apply xp %s: %w", g.Key, err)
	}
	if !applied {
		r.opts.log.WithField("grant", g.Key).Debug("xp grant already applied")
		return profile, false, nil
	}

	r.opts.metrics.AddXP(g.Amount)
	r.opts.log.WithFields(logrus.Fields{
		"grant":    g.Key,
		"user_uid": g.UserUID,
		"amount":   g.Amount,
		"total_xp": profile.TotalXP,
	}).Info("xp granted")
	r.publish(ctx)
	return profile, true, nil
}

func (r rewarder) leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	limit = clampLeaderboardLimit(limit)
	profiles, err := r.profiles.TopProfiles(ctx, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	return domain.Leaderboard{
		Entries:   RankProfiles(profiles, limit),
		UpdatedAt: r.opts.now(),
	}, nil
}

func (r rewarder) publish(ctx context.Context) {
	if r.opts.feed == nil {
		return
	}
	lb, err := r.leaderboard(ctx, DefaultLeaderboardSize)
	if err != nil {
		r.opts.log.WithError(err).Warn("leaderboard publish skipped")
		return
	}
	r.opts.feed.Publish(lb)
}
