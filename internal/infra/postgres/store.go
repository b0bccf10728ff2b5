package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quizquest-service/internal/domain"
)

type challengeRow struct {
	bun.BaseModel `bun:"table:challenges"`

	ID          string            `bun:"id,pk"`
	Title       string            `bun:"title"`
	Description string            `bun:"description"`
	Theme       string            `bun:"theme"`
	Difficulty  string            `bun:"difficulty"`
	CreatorUID  string            `bun:"creator_uid"`
	IsPublished bool              `bun:"is_published"`
	PlayCount   int               `bun:"play_count"`
	Questions   []domain.Question `bun:"questions,type:jsonb"`
	CreatedAt   time.Time         `bun:"created_at"`
}

func (r challengeRow) toDomain() domain.Challenge {
	return domain.Challenge{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Theme:       r.Theme,
		Difficulty:  domain.Difficulty(r.Difficulty),
		CreatorUID:  r.CreatorUID,
		IsPublished: r.IsPublished,
		PlayCount:   r.PlayCount,
		Questions:   r.Questions,
		CreatedAt:   r.CreatedAt,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID               string                   `bun:"id,pk"`
	ChallengeID      string                   `bun:"challenge_id"`
	UserUID          string                   `bun:"user_uid,nullzero"`
	SubmittedAnswers []domain.SubmittedAnswer `bun:"submitted_answers,type:jsonb"`
	Answers          []domain.GradedAnswer    `bun:"answers,type:jsonb"`
	Score            int                      `bun:"score"`
	TotalTime        int                      `bun:"total_time"`
	XPEarned         int                      `bun:"xp_earned"`
	StartedAt        *time.Time               `bun:"started_at"`
	CompletedAt      time.Time                `bun:"completed_at"`
	CreatedAt        time.Time                `bun:"created_at"`
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:               r.ID,
		ChallengeID:      r.ChallengeID,
		UserUID:          r.UserUID,
		SubmittedAnswers: r.SubmittedAnswers,
		Answers:          r.Answers,
		Score:            r.Score,
		TotalTime:        r.TotalTime,
		XPEarned:         r.XPEarned,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		CreatedAt:        r.CreatedAt,
	}
}

type firstAttemptRow struct {
	bun.BaseModel `bun:"table:first_attempts"`

	PlayerKey   string    `bun:"player_key,pk"`
	ChallengeID string    `bun:"challenge_id,pk"`
	ClaimedAt   time.Time `bun:"claimed_at"`
}

type profileRow struct {
	bun.BaseModel `bun:"table:user_profiles"`

	UID                 string    `bun:"firebase_uid,pk"`
	DisplayName         string    `bun:"display_name"`
	Email               string    `bun:"email"`
	TotalXP             int       `bun:"total_xp"`
	ChallengesCompleted int       `bun:"challenges_completed"`
	UpdatedAt           time.Time `bun:"updated_at"`
}

func (r profileRow) toDomain() domain.UserProfile {
	return domain.UserProfile{
		UID:                 r.UID,
		DisplayName:         r.DisplayName,
		Email:               r.Email,
		TotalXP:             r.TotalXP,
		ChallengesCompleted: r.ChallengesCompleted,
		UpdatedAt:           r.UpdatedAt,
	}
}

type grantRow struct {
	bun.BaseModel `bun:"table:xp_grants"`

	Key       string    `bun:"key,pk"`
	UserUID   string    `bun:"user_uid"`
	Amount    int       `bun:"amount"`
	CreatedAt time.Time `bun:"created_at"`
}

type matchRow struct {
	bun.BaseModel `bun:"table:matches"`

	ID          string     `bun:"id,pk"`
	ChallengeID string     `bun:"challenge_id"`
	Player1     string     `bun:"player1"`
	Player2     string     `bun:"player2"`
	Attempt1ID  string     `bun:"attempt1_id,nullzero"`
	Attempt2ID  string     `bun:"attempt2_id,nullzero"`
	Winner      string     `bun:"winner,nullzero"`
	CreatedAt   time.Time  `bun:"created_at"`
	FinishedAt  *time.Time `bun:"finished_at"`
}

func (r matchRow) toDomain() domain.Match {
	return domain.Match{
		ID:          r.ID,
		ChallengeID: r.ChallengeID,
		Player1UID:  r.Player1,
		Player2UID:  r.Player2,
		Attempt1ID:  r.Attempt1ID,
		Attempt2ID:  r.Attempt2ID,
		WinnerUID:   r.Winner,
		CreatedAt:   r.CreatedAt,
		FinishedAt:  r.FinishedAt,
	}
}

// Store is the durable bun-backed implementation of the app repositories.
// Shared counters are only ever changed with relative SQL updates.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Challenges

func (s *Store) ListChallenges(ctx context.Context, theme string) ([]domain.Challenge, error) {
	var rows []challengeRow
	q := s.db.NewSelect().Model(&rows).Where("is_published").OrderExpr("created_at DESC")
	if theme != "" {
		q = q.Where("theme = ?", theme)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	out := make([]domain.Challenge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// SaveChallenge inserts a new challenge. An existing id is left untouched and
// reported as domain.ErrChallengeExists.
func (s *Store) SaveChallenge(ctx context.Context, c domain.Challenge) error {
	row := challengeRow{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Theme:       c.Theme,
		Difficulty:  string(c.Difficulty),
		CreatorUID:  c.CreatorUID,
		IsPublished: c.IsPublished,
		PlayCount:   c.PlayCount,
		Questions:   c.Questions,
		CreatedAt:   c.CreatedAt,
	}
	res, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save challenge %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrChallengeExists, c.ID)
	}
	return nil
}

func (s *Store) IncrementPlayCount(ctx context.Context, challengeID string) error {
	res, err := s.db.NewUpdate().Model((*challengeRow)(nil)).
		Set("play_count = play_count + 1").
		Where("id = ?", challengeID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment play count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrChallengeNotFound
	}
	return nil
}

// Attempts

func (s *Store) CreateAttempt(ctx context.Context, a domain.Attempt) error {
	row := attemptRow{
		ID:               a.ID,
		ChallengeID:      a.ChallengeID,
		UserUID:          a.UserUID,
		SubmittedAnswers: a.SubmittedAnswers,
		Answers:          a.Answers,
		Score:            a.Score,
		TotalTime:        a.TotalTime,
		XPEarned:         a.XPEarned,
		StartedAt:        a.StartedAt,
		CompletedAt:      a.CompletedAt,
		CreatedAt:        a.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt %s: %w", attemptID, err)
	}
	return row.toDomain(), nil
}

// ClaimFirstAttempt inserts the (player, challenge) marker; the primary key
// lets exactly one caller succeed. Anonymous players share the empty key.
func (s *Store) ClaimFirstAttempt(ctx context.Context, userUID, challengeID string) (bool, error) {
	res, err := s.db.NewInsert().Model(&firstAttemptRow{
		PlayerKey:   userUID,
		ChallengeID: challengeID,
		ClaimedAt:   s.now(),
	}).On("CONFLICT (player_key, challenge_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("claim first attempt: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (s *Store) ListAttemptsByUser(ctx context.Context, userUID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx, "user_uid = ?", userUID)
}

func (s *Store) ListAttemptsByChallenge(ctx context.Context, challengeID string) ([]domain.Attempt, error) {
	return s.listAttempts(ctx, "challenge_id = ?", challengeID)
}

func (s *Store) listAttempts(ctx context.Context, where string, arg string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().Model(&rows).Where(where, arg).OrderExpr("created_at DESC, id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Profiles

func (s *Store) GetProfile(ctx context.Context, userUID string) (domain.UserProfile, error) {
	return s.getProfile(ctx, s.db, userUID)
}

func (s *Store) GetOrCreateProfile(ctx context.Context, userUID string, defaults domain.ProfileDefaults) (domain.UserProfile, error) {
	if err := s.ensureProfile(ctx, s.db, userUID, defaults); err != nil {
		return domain.UserProfile{}, err
	}
	return s.getProfile(ctx, s.db, userUID)
}

// ApplyXP records the grant key and increments the counters in one
// transaction. A key that is already recorded leaves the profile untouched.
func (s *Store) ApplyXP(ctx context.Context, grant domain.XPGrant, defaults domain.ProfileDefaults) (domain.UserProfile, bool, error) {
	var (
		profile domain.UserProfile
		applied bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.ensureProfile(ctx, tx, grant.UserUID, defaults); err != nil {
			return err
		}

		now := s.now()
		res, err := tx.NewInsert().Model(&grantRow{
			Key:       grant.Key,
			UserUID:   grant.UserUID,
			Amount:    grant.Amount,
			CreatedAt: now,
		}).On("CONFLICT (key) DO NOTHING").Exec(ctx)
		if err != nil {
			return fmt.Errorf("record grant: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			profile, err = s.getProfile(ctx, tx, grant.UserUID)
			return err
		}

		completed := 0
		if grant.Completion {
			completed = 1
		}
		var row profileRow
		_, err = tx.NewUpdate().Model(&row).
			Set("total_xp = total_xp + ?", grant.Amount).
			Set("challenges_completed = challenges_completed + ?", completed).
			Set("updated_at = ?", now).
			Where("firebase_uid = ?", grant.UserUID).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("increment xp: %w", err)
		}
		profile = row.toDomain()
		applied = true
		return nil
	})
	if err != nil {
		return domain.UserProfile{}, false, fmt.Errorf("apply grant %s: %w", grant.Key, err)
	}
	return profile, applied, nil
}

func (s *Store) TopProfiles(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	var rows []profileRow
	err := s.db.NewSelect().Model(&rows).
		OrderExpr("total_xp DESC, challenges_completed DESC, display_name ASC, firebase_uid ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("top profiles: %w", err)
	}
	out := make([]domain.UserProfile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ensureProfile(ctx context.Context, db bun.IDB, userUID string, defaults domain.ProfileDefaults) error {
	defaults = defaults.WithFallbacks()
	_, err := db.NewInsert().Model(&profileRow{
		UID:         userUID,
		DisplayName: defaults.DisplayName,
		Email:       defaults.Email,
		UpdatedAt:   s.now(),
	}).On("CONFLICT (firebase_uid) DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("create profile %s: %w", userUID, err)
	}
	return nil
}

func (s *Store) getProfile(ctx context.Context, db bun.IDB, userUID string) (domain.UserProfile, error) {
	var row profileRow
	err := db.NewSelect().Model(&row).Where("firebase_uid = ?", userUID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("load profile %s: %w", userUID, err)
	}
	return row.toDomain(), nil
}

// Matches

func (s *Store) CreateMatch(ctx context.Context, m domain.Match) error {
	row := matchRow{
		ID:          m.ID,
		ChallengeID: m.ChallengeID,
		Player1:     m.Player1UID,
		Player2:     m.Player2UID,
		CreatedAt:   m.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert match %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	var row matchRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", matchID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("load match %s: %w", matchID, err)
	}
	return row.toDomain(), nil
}

// AttachAttempt fills an empty slot; re-attaching the same attempt is a no-op.
func (s *Store) AttachAttempt(ctx context.Context, matchID string, slot int, attemptID string) (domain.Match, error) {
	var column string
	switch slot {
	case 1:
		column = "attempt1_id"
	case 2:
		column = "attempt2_id"
	default:
		return domain.Match{}, fmt.Errorf("invalid match slot %d", slot)
	}

	_, err := s.db.NewUpdate().Model((*matchRow)(nil)).
		Set("? = ?", bun.Ident(column), attemptID).
		Where("id = ?", matchID).
		Where("? IS NULL", bun.Ident(column)).
		Exec(ctx)
	if err != nil {
		return domain.Match{}, fmt.Errorf("attach attempt: %w", err)
	}

	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return domain.Match{}, err
	}
	current := m.Attempt1ID
	if slot == 2 {
		current = m.Attempt2ID
	}
	if current != attemptID {
		return domain.Match{}, domain.ErrSlotTaken
	}
	return m, nil
}

// SetWinner writes the winner only while the stored winner is null.
func (s *Store) SetWinner(ctx context.Context, matchID, winnerUID string, finishedAt time.Time) (bool, error) {
	res, err := s.db.NewUpdate().Model((*matchRow)(nil)).
		Set("winner = ?", winnerUID).
		Set("finished_at = ?", finishedAt).
		Where("id = ?", matchID).
		Where("winner IS NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("set winner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}
	if _, err := s.GetMatch(ctx, matchID); err != nil {
		return false, err
	}
	return false, nil
}
