package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizquest-service/internal/domain"
	"quizquest-service/internal/infra/memory"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type countingLoader struct {
	memory.ChallengeLoader
	calls int
}

func (l *countingLoader) LoadChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	l.calls++
	return l.ChallengeLoader.LoadChallenge(ctx, challengeID)
}

func sampleChallenge() domain.Challenge {
	return domain.Challenge{
		ID:         "ch-1",
		Title:      "Mixed",
		Difficulty: domain.DifficultyMedium,
		Questions: []domain.Question{
			{ID: "q1", Points: 10, Body: domain.MultipleChoice{Options: []string{"3", "4"}, CorrectAnswer: 1}},
			{ID: "q2", Points: 5, Body: domain.ShortAnswer{AcceptableAnswers: []string{"Paris"}, MatchRegex: "^par"}},
			{ID: "q3", Body: domain.ForcedRecall{Entries: []domain.TableEntry{
				{EntryID: "e1", AcceptableAnswers: []string{"H"}, Points: 2},
			}}},
		},
	}
}

func TestChallengeRepositoryCachesInRedis(t *testing.T) {
	mr, client := newClient(t)
	loader := &countingLoader{ChallengeLoader: memory.NewChallengeStore(sampleChallenge())}
	repo := NewChallengeRepository(client, loader, time.Minute)
	ctx := context.Background()

	first, err := repo.GetChallenge(ctx, "ch-1")
	if err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("challenge:ch-1") {
		t.Fatalf("expected cached challenge key")
	}

	second, err := repo.GetChallenge(ctx, "ch-1")
	if err != nil {
		t.Fatalf("get challenge 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(second.Questions) != 3 || second.Questions[2].Type() != domain.TypeForcedRecall {
		t.Fatalf("cached challenge lost question variants: %+v", second.Questions)
	}
	mc, ok := second.Questions[0].Body.(domain.MultipleChoice)
	if !ok || mc.CorrectAnswer != 1 {
		t.Fatalf("unexpected cached body %+v", second.Questions[0].Body)
	}
	if first.ID != second.ID {
		t.Fatalf("cache returned a different challenge")
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetChallenge(ctx, "ch-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d", loader.calls)
	}

	if err := repo.Invalidate(ctx, "ch-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("challenge:ch-1") {
		t.Fatalf("expected cache key removed")
	}
}

func TestChallengeRepositoryMissIsNotCached(t *testing.T) {
	mr, client := newClient(t)
	repo := NewChallengeRepository(client, memory.NewChallengeStore(), time.Minute)

	_, err := repo.GetChallenge(context.Background(), "missing")
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("challenge:missing") {
		t.Fatalf("misses must not be cached")
	}
}

func TestProfileStoreApplyXPOnce(t *testing.T) {
	_, client := newClient(t)
	store := NewProfileStore(client)
	ctx := context.Background()
	grant := domain.XPGrant{Key: "attempt:a1", UserUID: "u1", Amount: 210, Completion: true}

	p, applied, err := store.ApplyXP(ctx, grant, domain.ProfileDefaults{DisplayName: "Alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied || p.TotalXP != 210 || p.ChallengesCompleted != 1 {
		t.Fatalf("unexpected first apply %v %+v", applied, p)
	}
	if p.DisplayName != "Alice" || p.Email != "a@example.com" || p.UID != "u1" {
		t.Fatalf("profile defaults not applied: %+v", p)
	}

	p, applied, err = store.ApplyXP(ctx, grant, domain.ProfileDefaults{DisplayName: "Other"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if applied || p.TotalXP != 210 || p.DisplayName != "Alice" {
		t.Fatalf("replay must be a no-op, got %v %+v", applied, p)
	}

	p, applied, _ = store.ApplyXP(ctx, domain.XPGrant{Key: "match:m1", UserUID: "u1", Amount: 50}, domain.ProfileDefaults{})
	if !applied || p.TotalXP != 260 || p.ChallengesCompleted != 1 {
		t.Fatalf("unexpected bonus apply %+v", p)
	}
}

func TestProfileStoreGetOrCreate(t *testing.T) {
	_, client := newClient(t)
	store := NewProfileStore(client)
	ctx := context.Background()

	if _, err := store.GetProfile(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	p, err := store.GetOrCreateProfile(ctx, "u1", domain.ProfileDefaults{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.DisplayName != "Anonymous" || p.TotalXP != 0 {
		t.Fatalf("unexpected new profile %+v", p)
	}
	p, _ = store.GetOrCreateProfile(ctx, "u1", domain.ProfileDefaults{DisplayName: "Later"})
	if p.DisplayName != "Anonymous" {
		t.Fatalf("existing profile must not be overwritten, got %+v", p)
	}
}

func TestProfileStoreTopProfilesIncludesTies(t *testing.T) {
	_, client := newClient(t)
	store := NewProfileStore(client)
	ctx := context.Background()

	grants := []domain.XPGrant{
		{Key: "g1", UserUID: "u1", Amount: 300},
		{Key: "g2", UserUID: "u2", Amount: 100},
		{Key: "g3", UserUID: "u3", Amount: 100},
		{Key: "g4", UserUID: "u4", Amount: 10},
	}
	for _, g := range grants {
		if _, _, err := store.ApplyXP(ctx, g, domain.ProfileDefaults{}); err != nil {
			t.Fatalf("apply %s: %v", g.Key, err)
		}
	}

	top, err := store.TopProfiles(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected leader plus both tied profiles, got %+v", top)
	}
	if top[0].UID != "u1" {
		t.Fatalf("expected u1 first, got %+v", top[0])
	}
}

func TestMatchStoreAttachAndWinner(t *testing.T) {
	_, client := newClient(t)
	store := NewMatchStore(client, 0)
	ctx := context.Background()
	created := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	if err := store.CreateMatch(ctx, domain.Match{ID: "m1", ChallengeID: "ch-1", Player1UID: "u1", Player2UID: "u2", CreatedAt: created}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateMatch(ctx, domain.Match{ID: "m1"}); err == nil {
		t.Fatalf("expected duplicate match to fail")
	}

	m, err := store.AttachAttempt(ctx, "m1", 1, "a1")
	if err != nil || m.Attempt1ID != "a1" || m.State() != domain.MatchPending {
		t.Fatalf("attach slot 1: %+v %v", m, err)
	}
	if _, err := store.AttachAttempt(ctx, "m1", 1, "a1"); err != nil {
		t.Fatalf("re-attach should be a no-op: %v", err)
	}
	if _, err := store.AttachAttempt(ctx, "m1", 1, "other"); !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("expected slot taken, got %v", err)
	}
	if _, err := store.AttachAttempt(ctx, "nope", 1, "a1"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected match not found, got %v", err)
	}
	m, _ = store.AttachAttempt(ctx, "m1", 2, "a2")
	if m.State() != domain.MatchReady {
		t.Fatalf("expected ready, got %s", m.State())
	}

	finished := created.Add(time.Minute)
	won, err := store.SetWinner(ctx, "m1", "u2", finished)
	if err != nil || !won {
		t.Fatalf("set winner: %v %v", won, err)
	}
	won, _ = store.SetWinner(ctx, "m1", "u1", finished.Add(time.Minute))
	if won {
		t.Fatalf("winner must only be written once")
	}

	m, err = store.GetMatch(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.WinnerUID != "u2" || m.FinishedAt == nil || !m.FinishedAt.Equal(finished) || !m.CreatedAt.Equal(created) {
		t.Fatalf("unexpected stored match %+v", m)
	}
}

func TestAttemptStoreIndexes(t *testing.T) {
	mr, client := newClient(t)
	store := NewAttemptStore(client)
	ctx := context.Background()
	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	attempts := []domain.Attempt{
		{ID: "a1", ChallengeID: "ch-1", UserUID: "u1", Score: 80, CreatedAt: base},
		{ID: "a2", ChallengeID: "ch-1", Score: 40, CreatedAt: base.Add(time.Minute)},
		{ID: "a3", ChallengeID: "ch-2", UserUID: "u1", Score: 100, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, a := range attempts {
		if err := store.CreateAttempt(ctx, a); err != nil {
			t.Fatalf("create %s: %v", a.ID, err)
		}
	}
	if err := store.CreateAttempt(ctx, attempts[0]); err == nil {
		t.Fatalf("expected duplicate attempt to fail")
	}

	got, err := store.GetAttempt(ctx, "a3")
	if err != nil || got.Score != 100 {
		t.Fatalf("get attempt: %+v %v", got, err)
	}
	if _, err := store.GetAttempt(ctx, "missing"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if first, _ := store.ClaimFirstAttempt(ctx, "u1", "ch-2"); !first {
		t.Fatalf("expected first claim for u1 on ch-2")
	}
	if first, _ := store.ClaimFirstAttempt(ctx, "u1", "ch-2"); first {
		t.Fatalf("expected repeated claim to lose")
	}
	if first, _ := store.ClaimFirstAttempt(ctx, "", "ch-1"); !first {
		t.Fatalf("expected first anonymous claim")
	}
	if first, _ := store.ClaimFirstAttempt(ctx, "", "ch-1"); first {
		t.Fatalf("expected anonymous players to share one claim")
	}
	if !mr.Exists("attempts:anonymous:challenges") {
		t.Fatalf("expected anonymous claim key")
	}

	byUser, _ := store.ListAttemptsByUser(ctx, "u1")
	if len(byUser) != 2 || byUser[0].ID != "a3" {
		t.Fatalf("unexpected user attempts %+v", byUser)
	}
	byChallenge, _ := store.ListAttemptsByChallenge(ctx, "ch-1")
	if len(byChallenge) != 2 || byChallenge[0].ID != "a2" {
		t.Fatalf("unexpected challenge attempts %+v", byChallenge)
	}
}
