package app

import (
	"sort"
	"sync"

	"quizquest-service/internal/domain"
)

const (
	// DefaultLeaderboardSize is used when a caller asks for a non-positive limit.
	DefaultLeaderboardSize = 10
	// MaxLeaderboardSize caps a single leaderboard read.
	MaxLeaderboardSize = 100
)

// LeaderboardFeed fans leaderboard snapshots out to live subscribers.
type LeaderboardFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{subscribers: make(map[chan domain.Leaderboard]struct{})}
}

// Publish delivers lb to every subscriber. A subscriber that has not consumed
// the previous snapshot gets it replaced instead of blocking the publisher.
func (f *LeaderboardFeed) Publish(lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// subscribe registers a channel primed with initial. The returned cancel
// function must be called to release it.
func (f *LeaderboardFeed) subscribe(initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports the number of live subscriptions.
func (f *LeaderboardFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// RankProfiles orders profiles by total XP, then challenges completed, then
// display name, and truncates to limit.
func RankProfiles(profiles []domain.UserProfile, limit int) []domain.LeaderboardEntry {
	ranked := make([]domain.UserProfile, len(profiles))
	copy(ranked, profiles)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalXP != ranked[j].TotalXP {
			return ranked[i].TotalXP > ranked[j].TotalXP
		}
		if ranked[i].ChallengesCompleted != ranked[j].ChallengesCompleted {
			return ranked[i].ChallengesCompleted > ranked[j].ChallengesCompleted
		}
		if ranked[i].DisplayName != ranked[j].DisplayName {
			return ranked[i].DisplayName < ranked[j].DisplayName
		}
		return ranked[i].UID < ranked[j].UID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for _, p := range ranked {
		entries = append(entries, domain.LeaderboardEntry{
			UserUID:             p.UID,
			DisplayName:         p.DisplayName,
			TotalXP:             p.TotalXP,
			ChallengesCompleted: p.ChallengesCompleted,
		})
	}
	return entries
}

func clampLeaderboardLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardSize
	case limit > MaxLeaderboardSize:
		return MaxLeaderboardSize
	}
	return limit
}
