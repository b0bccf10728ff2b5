package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createProgressSQL = `
CREATE TABLE IF NOT EXISTS attempts (
	id                TEXT PRIMARY KEY,
	challenge_id      TEXT NOT NULL REFERENCES challenges (id) ON DELETE CASCADE,
	user_uid          TEXT,
	submitted_answers JSONB NOT NULL DEFAULT '[]'::jsonb,
	answers           JSONB NOT NULL DEFAULT '[]'::jsonb,
	score             INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	total_time        INTEGER NOT NULL DEFAULT 0,
	xp_earned         INTEGER NOT NULL DEFAULT 0,
	started_at        TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS attempts_user_challenge_idx ON attempts (user_uid, challenge_id);
CREATE INDEX IF NOT EXISTS attempts_challenge_idx ON attempts (challenge_id);

CREATE TABLE IF NOT EXISTS user_profiles (
	firebase_uid         TEXT PRIMARY KEY,
	display_name         TEXT NOT NULL DEFAULT 'Anonymous',
	email                TEXT NOT NULL DEFAULT '',
	total_xp             INTEGER NOT NULL DEFAULT 0,
	challenges_completed INTEGER NOT NULL DEFAULT 0,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS user_profiles_xp_idx ON user_profiles (total_xp DESC);

CREATE TABLE IF NOT EXISTS xp_grants (
	key        TEXT PRIMARY KEY,
	user_uid   TEXT NOT NULL REFERENCES user_profiles (firebase_uid) ON DELETE CASCADE,
	amount     INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	id           TEXT PRIMARY KEY,
	challenge_id TEXT NOT NULL REFERENCES challenges (id) ON DELETE CASCADE,
	player1      TEXT NOT NULL,
	player2      TEXT NOT NULL,
	attempt1_id  TEXT REFERENCES attempts (id),
	attempt2_id  TEXT REFERENCES attempts (id),
	winner       TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at  TIMESTAMPTZ
);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createProgressSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS matches, xp_grants, user_profiles, attempts`)
			return err
		},
	)
}
