package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizquest-service/internal/domain"
)

// attachAttemptScript fills an attempt slot.
// Returns 1 when written, 0 when the same attempt is already there,
// -1 for an unknown match and -2 when another attempt holds the slot.
var attachAttemptScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local current = redis.call('HGET', KEYS[1], ARGV[1])
if not current or current == '' then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return 1
end
if current == ARGV[2] then
	return 0
end
return -2
`)

// setWinnerScript writes the winner only while none is stored.
var setWinnerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local winner = redis.call('HGET', KEYS[1], 'winner')
if winner and winner ~= '' then
	return 0
end
redis.call('HSET', KEYS[1], 'winner', ARGV[1], 'finished_at', ARGV[2])
return 1
`)

// MatchStore keeps each match in a hash at match:{id}.
type MatchStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMatchStore creates a store; a positive ttl expires idle matches.
func NewMatchStore(client *redis.Client, ttl time.Duration) *MatchStore {
	return &MatchStore{client: client, ttl: ttl}
}

func (s *MatchStore) CreateMatch(ctx context.Context, match domain.Match) error {
	key := matchKey(match.ID)
	created, err := s.client.HSetNX(ctx, key, "id", match.ID).Result()
	if err != nil {
		return fmt.Errorf("create match %s: %w", match.ID, err)
	}
	if !created {
		return fmt.Errorf("match %s already exists", match.ID)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"challenge", match.ChallengeID,
		"player1", match.Player1UID,
		"player2", match.Player2UID,
		"created_at", match.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create match %s: %w", match.ID, err)
	}
	return nil
}

func (s *MatchStore) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	fields, err := s.client.HGetAll(ctx, matchKey(matchID)).Result()
	if err != nil {
		return domain.Match{}, fmt.Errorf("load match %s: %w", matchID, err)
	}
	if len(fields) == 0 {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return matchFromHash(fields), nil
}

func (s *MatchStore) AttachAttempt(ctx context.Context, matchID string, slot int, attemptID string) (domain.Match, error) {
	field := fmt.Sprintf("attempt%d", slot)
	if slot != 1 && slot != 2 {
		return domain.Match{}, fmt.Errorf("invalid match slot %d", slot)
	}
	res, err := attachAttemptScript.Run(ctx, s.client, []string{matchKey(matchID)}, field, attemptID).Int()
	if err != nil {
		return domain.Match{}, fmt.Errorf("attach attempt: %w", err)
	}
	switch res {
	case -1:
		return domain.Match{}, domain.ErrMatchNotFound
	case -2:
		return domain.Match{}, domain.ErrSlotTaken
	}
	return s.GetMatch(ctx, matchID)
}

func (s *MatchStore) SetWinner(ctx context.Context, matchID, winnerUID string, finishedAt time.Time) (bool, error) {
	res, err := setWinnerScript.Run(ctx, s.client, []string{matchKey(matchID)},
		winnerUID, finishedAt.UTC().Format(time.RFC3339Nano)).Int()
	if err != nil {
		return false, fmt.Errorf("set winner: %w", err)
	}
	if res == -1 {
		return false, domain.ErrMatchNotFound
	}
	return res == 1, nil
}

func matchKey(matchID string) string {
	return "match:" + matchID
}

func matchFromHash(fields map[string]string) domain.Match {
	m := domain.Match{
		ID:          fields["id"],
		ChallengeID: fields["challenge"],
		Player1UID:  fields["player1"],
		Player2UID:  fields["player2"],
		Attempt1ID:  fields["attempt1"],
		Attempt2ID:  fields["attempt2"],
		WinnerUID:   fields["winner"],
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	if raw := fields["finished_at"]; raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			m.FinishedAt = &t
		}
	}
	return m
}
