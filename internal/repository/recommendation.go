package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/trahn-planner/internal/models"
)

const recommendationColumns = `id::text, timestamp, plan_day, coin_data, prompt, result_rows, demo_mode, failure, created_at`

type RecommendationRepo struct {
	pool *pgxpool.Pool
}

func NewRecommendationRepo(pool *pgxpool.Pool) *RecommendationRepo {
	return &RecommendationRepo{pool: pool}
}

func (r *RecommendationRepo) Record(ctx context.Context, run *models.RecommendationRun) (*models.RecommendationRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.Rows == nil {
		run.Rows = []map[string]any{}
	}

	rows, err := json.Marshal(run.Rows)
	if err != nil {
		return nil, fmt.Errorf("marshal rows: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO recommendation_runs
		 (id, timestamp, plan_day, coin_data, prompt, result_rows, demo_mode, failure)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+recommendationColumns,
		run.ID.String(), run.Timestamp, PlanDay(run.Timestamp),
		run.CoinData, run.Prompt, rows, run.DemoMode, run.Failure,
	)
	return scanRecommendation(row)
}

func (r *RecommendationRepo) Get(ctx context.Context, id uuid.UUID) (*models.RecommendationRun, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recommendationColumns+` FROM recommendation_runs WHERE id = $1`,
		id.String(),
	)
	rec, err := scanRecommendation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

func (r *RecommendationRepo) GetRecent(ctx context.Context, limit int) ([]models.RecommendationRun, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recommendationColumns+` FROM recommendation_runs ORDER BY timestamp DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RecommendationRun{}
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// --- scan helpers ---

func scanRecommendation(row scannable) (*models.RecommendationRun, error) {
	var (
		rec models.RecommendationRun
		id  string
		day time.Time
		raw []byte
	)
	err := row.Scan(&id, &rec.Timestamp, &day, &rec.CoinData, &rec.Prompt,
		&raw, &rec.DemoMode, &rec.Failure, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	rec.ID = parsed
	rec.PlanDay = day.Format("2006-01-02")

	if err := decodeJSON(raw, &rec.Rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return &rec, nil
}
