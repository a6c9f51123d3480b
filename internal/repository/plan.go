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

const planColumns = `id::text, timestamp, plan_day, market, account, grids, summary, warnings, created_at`

type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

// Record stores a plan run, assigning its id and plan day when unset.
func (r *PlanRepo) Record(ctx context.Context, run *models.PlanRun) (*models.PlanRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.Warnings == nil {
		run.Warnings = []string{}
	}

	market, err := json.Marshal(run.Market)
	if err != nil {
		return nil, fmt.Errorf("marshal market: %w", err)
	}
	account, err := json.Marshal(run.Account)
	if err != nil {
		return nil, fmt.Errorf("marshal account: %w", err)
	}
	grids, err := json.Marshal(run.Grids)
	if err != nil {
		return nil, fmt.Errorf("marshal grids: %w", err)
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return nil, fmt.Errorf("marshal warnings: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO plan_runs
		 (id, timestamp, plan_day, symbol, market, account, grids, summary, warnings)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+planColumns,
		run.ID.String(), run.Timestamp, PlanDay(run.Timestamp), run.Market.Symbol,
		market, account, grids, summary, warnings,
	)
	return scanPlan(row)
}

func (r *PlanRepo) Get(ctx context.Context, id uuid.UUID) (*models.PlanRun, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plan_runs WHERE id = $1`,
		id.String(),
	)
	p, err := scanPlan(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PlanRepo) GetByDay(ctx context.Context, planDay string) ([]models.PlanRun, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plan_runs WHERE plan_day = $1 ORDER BY timestamp ASC`,
		planDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPlans(rows)
}

func (r *PlanRepo) GetRecent(ctx context.Context, limit int) ([]models.PlanRun, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plan_runs ORDER BY timestamp DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPlans(rows)
}

// --- scan helpers ---

func scanPlan(row scannable) (*models.PlanRun, error) {
	var p models.PlanRun
	var id string
	var day time.Time
	var market, account, grids, summary, warnings []byte
	if err := row.Scan(&id, &p.Timestamp, &day, &market, &account, &grids, &summary, &warnings, &p.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	p.ID = parsed
	p.PlanDay = day.Format("2006-01-02")

	for _, col := range []struct {
		name string
		raw  []byte
		dest any
	}{
		{"market", market, &p.Market},
		{"account", account, &p.Account},
		{"grids", grids, &p.Grids},
		{"summary", summary, &p.Summary},
		{"warnings", warnings, &p.Warnings},
	} {
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("decode %s: %w", col.name, err)
		}
	}
	return &p, nil
}

func collectPlans(rows rowsIter) ([]models.PlanRun, error) {
	out := []models.PlanRun{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
