package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS plan_runs (
		id          UUID PRIMARY KEY,
		timestamp   TIMESTAMPTZ NOT NULL,
		plan_day    DATE NOT NULL,
		symbol      TEXT NOT NULL,
		market      JSONB NOT NULL,
		account     JSONB NOT NULL,
		grids       JSONB NOT NULL,
		summary     JSONB NOT NULL,
		warnings    JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS plan_runs_plan_day_idx ON plan_runs (plan_day)`,
	`CREATE TABLE IF NOT EXISTS recommendation_runs (
		id          UUID PRIMARY KEY,
		timestamp   TIMESTAMPTZ NOT NULL,
		plan_day    DATE NOT NULL,
		coin_data   TEXT NOT NULL,
		prompt      TEXT NOT NULL,
		result_rows JSONB NOT NULL,
		demo_mode   BOOLEAN NOT NULL DEFAULT false,
		failure     TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS recommendation_runs_timestamp_idx ON recommendation_runs (timestamp DESC)`,
}

// Migrate creates the planner tables if they do not exist.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
