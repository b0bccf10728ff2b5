package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

const createChallengesSQL = `
CREATE TABLE IF NOT EXISTS challenges (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	theme        TEXT NOT NULL DEFAULT '',
	difficulty   TEXT NOT NULL DEFAULT 'medium',
	creator_uid  TEXT NOT NULL DEFAULT '',
	is_published BOOLEAN NOT NULL DEFAULT TRUE,
	play_count   INTEGER NOT NULL DEFAULT 0,
	questions    JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS challenges_theme_idx ON challenges (theme);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createChallengesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS challenges`)
			return err
		},
	)
}
