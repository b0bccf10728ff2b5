package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"quizquest-service/internal/domain"
)

// AttemptStore keeps attempts as JSON documents with per-user and
// per-challenge index sets:
//
//	attempt:{id}                  JSON
//	attempts:user:{uid}           set of attempt ids
//	attempts:challenge:{id}       set of attempt ids
//	attempts:user:{uid}:challenges set of challenge ids the user has claimed
//	attempts:anonymous:challenges  same, shared by all anonymous players
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	created, err := s.client.SetNX(ctx, attemptKey(attempt.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("store attempt %s: %w", attempt.ID, err)
	}
	if !created {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, challengeAttemptsKey(attempt.ChallengeID), attempt.ID)
	if !attempt.IsAnonymous() {
		pipe.SAdd(ctx, userAttemptsKey(attempt.UserUID), attempt.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index attempt %s: %w", attempt.ID, err)
	}
	return nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	payload, err := s.client.Get(ctx, attemptKey(attemptID)).Bytes()
	if isNil(err) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt %s: %w", attemptID, err)
	}
	var a domain.Attempt
	if err := json.Unmarshal(payload, &a); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode attempt %s: %w", attemptID, err)
	}
	return a, nil
}

// ClaimFirstAttempt adds the challenge to the player's claimed set; SADD
// returns 1 only for the caller that added it.
func (s *AttemptStore) ClaimFirstAttempt(ctx context.Context, userUID, challengeID string) (bool, error) {
	added, err := s.client.SAdd(ctx, userChallengesKey(userUID), challengeID).Result()
	if err != nil {
		return false, fmt.Errorf("claim first attempt: %w", err)
	}
	return added == 1, nil
}

func (s *AttemptStore) ListAttemptsByUser(ctx context.Context, userUID string) ([]domain.Attempt, error) {
	return s.listFromIndex(ctx, userAttemptsKey(userUID))
}

func (s *AttemptStore) ListAttemptsByChallenge(ctx context.Context, challengeID string) ([]domain.Attempt, error) {
	return s.listFromIndex(ctx, challengeAttemptsKey(challengeID))
}

// listFromIndex loads every attempt in an index set, most recent first.
func (s *AttemptStore) listFromIndex(ctx context.Context, indexKey string) ([]domain.Attempt, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", indexKey, err)
	}
	out := make([]domain.Attempt, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, attemptKey(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var a domain.Attempt
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func attemptKey(attemptID string) string {
	return "attempt:" + attemptID
}

func userAttemptsKey(userUID string) string {
	return "attempts:user:" + userUID
}

func userChallengesKey(userUID string) string {
	if userUID == "" {
		return "attempts:anonymous:challenges"
	}
	return "attempts:user:" + userUID + ":challenges"
}

func challengeAttemptsKey(challengeID string) string {
	return "attempts:challenge:" + challengeID
}
