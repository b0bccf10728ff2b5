package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizquest-service/internal/domain"
)

// ChallengeLoader fetches challenge content from a backing store.
type ChallengeLoader interface {
	LoadChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
}

// ChallengeRepository caches challenges with a TTL in front of a loader.
// Concurrent misses for the same id share one load.
type ChallengeRepository struct {
	loader ChallengeLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedChallenge
}

type cachedChallenge struct {
	challenge domain.Challenge
	expiresAt time.Time
}

func NewChallengeRepository(loader ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedChallenge),
	}
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	if c, ok := r.lookup(challengeID); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(challengeID, func() (interface{}, error) {
		if c, ok := r.lookup(challengeID); ok {
			return c, nil
		}
		c, err := r.loader.LoadChallenge(ctx, challengeID)
		if err != nil {
			return domain.Challenge{}, err
		}

		r.mu.Lock()
		r.cache[challengeID] = cachedChallenge{
			challenge: c,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return result.(domain.Challenge), nil
}

// Invalidate drops a cached challenge so the next read goes to the loader.
func (r *ChallengeRepository) Invalidate(_ context.Context, challengeID string) error {
	r.mu.Lock()
	delete(r.cache, challengeID)
	r.mu.Unlock()
	return nil
}

func (r *ChallengeRepository) lookup(challengeID string) (domain.Challenge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[challengeID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Challenge{}, false
	}
	return entry.challenge, true
}

// ttlWithJitterLocked adds up to 10% so entries loaded together expire apart.
func (r *ChallengeRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
