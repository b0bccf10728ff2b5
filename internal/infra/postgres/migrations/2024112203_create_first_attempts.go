package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

// player_key is the user uid, or '' for all anonymous players.
const createFirstAttemptsSQL = `
CREATE TABLE IF NOT EXISTS first_attempts (
	player_key   TEXT NOT NULL,
	challenge_id TEXT NOT NULL REFERENCES challenges (id) ON DELETE CASCADE,
	claimed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (player_key, challenge_id)
);

INSERT INTO first_attempts (player_key, challenge_id, claimed_at)
SELECT COALESCE(user_uid, ''), challenge_id, MIN(created_at)
FROM attempts
GROUP BY COALESCE(user_uid, ''), challenge_id
ON CONFLICT DO NOTHING;
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createFirstAttemptsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS first_attempts`)
			return err
		},
	)
}
