package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizquest-service/internal/domain"
	"quizquest-service/internal/infra/memory"
)

// ChallengeRepository caches whole challenges as JSON in Redis and falls back
// to a loader on a miss:
//
//	SET challenge:{id} <json> EX ttl
type ChallengeRepository struct {
	client *redis.Client
	loader memory.ChallengeLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewChallengeRepository(client *redis.Client, loader memory.ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	if c, ok := r.cached(ctx, challengeID); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(challengeID, func() (interface{}, error) {
		if c, ok := r.cached(ctx, challengeID); ok {
			return c, nil
		}
		c, err := r.loader.LoadChallenge(ctx, challengeID)
		if err != nil {
			return domain.Challenge{}, err
		}
		// A failed cache write only costs a reload next time.
		if payload, err := json.Marshal(c); err == nil {
			_ = r.client.Set(ctx, challengeKey(challengeID), payload, r.ttlWithJitter()).Err()
		}
		return c, nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return result.(domain.Challenge), nil
}

// Invalidate removes the cached copy of a challenge.
func (r *ChallengeRepository) Invalidate(ctx context.Context, challengeID string) error {
	return r.client.Del(ctx, challengeKey(challengeID)).Err()
}

func (r *ChallengeRepository) cached(ctx context.Context, challengeID string) (domain.Challenge, bool) {
	payload, err := r.client.Get(ctx, challengeKey(challengeID)).Bytes()
	if err != nil {
		return domain.Challenge{}, false
	}
	var c domain.Challenge
	if err := json.Unmarshal(payload, &c); err != nil {
		return domain.Challenge{}, false
	}
	return c, true
}

func challengeKey(challengeID string) string {
	return "challenge:" + challengeID
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
