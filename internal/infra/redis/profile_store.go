package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quizquest-service/internal/domain"
)

// Key layout:
//
//	profile:{uid}    hash  uid display_name email total_xp challenges_completed updated_at
//	xp:grant:{key}   string, present once the grant has been applied
//	leaderboard:xp   sorted set  uid -> total_xp
const leaderboardKey = "leaderboard:xp"

// createProfileLua seeds a profile hash if it does not exist yet.
// KEYS: profile, leaderboard. ARGV: uid, display_name, email, now.
const createProfileLua = `
if redis.call('HSETNX', KEYS[1], 'uid', ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], 'display_name', ARGV[2], 'email', ARGV[3],
		'total_xp', 0, 'challenges_completed', 0, 'updated_at', ARGV[4])
	redis.call('ZADD', KEYS[2], 0, ARGV[1])
end
`

var createProfileScript = redis.NewScript(createProfileLua + "return 1")

// applyXPScript applies a grant at most once per grant key.
// KEYS: profile, leaderboard, grant marker. ARGV: uid, display_name, email, now, amount, completion.
var applyXPScript = redis.NewScript(createProfileLua + `
if redis.call('SETNX', KEYS[3], ARGV[1]) == 0 then
	return 0
end
local total = redis.call('HINCRBY', KEYS[1], 'total_xp', ARGV[5])
if ARGV[6] == '1' then
	redis.call('HINCRBY', KEYS[1], 'challenges_completed', 1)
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[4])
redis.call('ZADD', KEYS[2], total, ARGV[1])
return 1
`)

// ProfileStore keeps profiles and the XP ledger in Redis. Grants are applied
// by a Lua script so the ledger check and the increment are one step.
type ProfileStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client, now: time.Now}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userUID string) (domain.UserProfile, error) {
	fields, err := s.client.HGetAll(ctx, profileKey(userUID)).Result()
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("load profile %s: %w", userUID, err)
	}
	if len(fields) == 0 {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	return profileFromHash(fields), nil
}

func (s *ProfileStore) GetOrCreateProfile(ctx context.Context, userUID string, defaults domain.ProfileDefaults) (domain.UserProfile, error) {
	defaults = defaults.WithFallbacks()
	keys := []string{profileKey(userUID), leaderboardKey}
	if err := createProfileScript.Run(ctx, s.client, keys, userUID, defaults.DisplayName, defaults.Email, s.stamp()).Err(); err != nil {
		return domain.UserProfile{}, fmt.Errorf("create profile %s: %w", userUID, err)
	}
	return s.GetProfile(ctx, userUID)
}

func (s *ProfileStore) ApplyXP(ctx context.Context, grant domain.XPGrant, defaults domain.ProfileDefaults) (domain.UserProfile, bool, error) {
	defaults = defaults.WithFallbacks()
	completion := "0"
	if grant.Completion {
		completion = "1"
	}
	keys := []string{profileKey(grant.UserUID), leaderboardKey, grantKey(grant.Key)}
	applied, err := applyXPScript.Run(ctx, s.client, keys,
		grant.UserUID, defaults.DisplayName, defaults.Email, s.stamp(), grant.Amount, completion).Int()
	if err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("apply grant %s: %w", grant.Key, err)
	}
	profile, err := s.GetProfile(ctx, grant.UserUID)
	if err != nil {
		return domain.UserProfile{}, false, err
	}
	return profile, applied == 1, nil
}

// TopProfiles reads the highest-XP profiles from the leaderboard set. Profiles
// tied with the last one are included so the caller can break ties itself.
func (s *ProfileStore) TopProfiles(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	if limit <= 0 {
		return []domain.UserProfile{}, nil
	}
	top, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	uids := make([]string, 0, len(top))
	seen := make(map[string]struct{}, len(top))
	for _, z := range top {
		uid := z.Member.(string)
		uids = append(uids, uid)
		seen[uid] = struct{}{}
	}
	if len(top) == limit {
		edge := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
		tied, err := s.client.ZRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{Min: edge, Max: edge}).Result()
		if err != nil {
			return nil, fmt.Errorf("read leaderboard ties: %w", err)
		}
		for _, uid := range tied {
			if _, ok := seen[uid]; !ok {
				uids = append(uids, uid)
			}
		}
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(uids))
	for _, uid := range uids {
		cmds = append(cmds, pipe.HGetAll(ctx, profileKey(uid)))
	}
	if _, err := pipe.Exec(ctx); err != nil && !isNil(err) {
		return nil, fmt.Errorf("load leaderboard profiles: %w", err)
	}

	profiles := make([]domain.UserProfile, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		profiles = append(profiles, profileFromHash(fields))
	}
	return profiles, nil
}

func (s *ProfileStore) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func profileKey(userUID string) string {
	return "profile:" + userUID
}

func grantKey(key string) string {
	return "xp:grant:" + key
}

func profileFromHash(fields map[string]string) domain.UserProfile {
	p := domain.UserProfile{
		UID:         fields["uid"],
		DisplayName: fields["display_name"],
		Email:       fields["email"],
	}
	p.TotalXP, _ = strconv.Atoi(fields["total_xp"])
	p.ChallengesCompleted, _ = strconv.Atoi(fields["challenges_completed"])
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return p
}
