package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizquest-service/internal/domain"
)

// ChallengeLoader loads a challenge row with its JSONB questions from Postgres.
type ChallengeLoader struct {
	pool *pgxpool.Pool
}

func NewChallengeLoader(pool *pgxpool.Pool) *ChallengeLoader {
	return &ChallengeLoader{pool: pool}
}

const loadChallengeSQL = `
SELECT id, title, description, theme, difficulty, creator_uid, is_published, play_count, questions, created_at
FROM challenges
WHERE id = $1`

func (l *ChallengeLoader) LoadChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	var (
		c          domain.Challenge
		difficulty string
		questions  []byte
	)
	err := l.pool.QueryRow(ctx, loadChallengeSQL, challengeID).Scan(
		&c.ID, &c.Title, &c.Description, &c.Theme, &difficulty, &c.CreatorUID,
		&c.IsPublished, &c.PlayCount, &questions, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("load challenge: %w", err)
	}
	c.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal(questions, &c.Questions); err != nil {
		return domain.Challenge{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return c, nil
}
