package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/kjannette/trahn-planner/internal/repository"
	"github.com/kjannette/trahn-planner/internal/strategy"
	"github.com/kjannette/trahn-planner/internal/testutil"
)

func TestPlanDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2026-10-18", repository.PlanDay(time.Date(2026, 10, 17, 23, 30, 0, 0, est)))
	assert.Equal(t, "2026-10-17", repository.PlanDay(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)))
}

// ---------- PlanRepo ----------

func TestPlanRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewPlanRepo(pool)
	ctx := context.Background()

	m, s := models.DefaultSnapshot(), models.DefaultSettings()
	grids, err := strategy.CalculateTradeGrids(m, s)
	require.NoError(t, err)

	recorded, err := repo.Record(ctx, &models.PlanRun{
		Market:   m,
		Account:  s,
		Grids:    grids,
		Summary:  strategy.Summarize(grids),
		Warnings: []string{"test warning"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, recorded.ID)
	assert.Equal(t, repository.PlanDay(recorded.Timestamp), recorded.PlanDay)
	assert.Equal(t, grids, recorded.Grids)
	assert.Equal(t, m, recorded.Market)

	got, err := repo.Get(ctx, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, recorded.ID, got.ID)
	assert.Equal(t, []string{"test warning"}, got.Warnings)

	byDay, err := repo.GetByDay(ctx, recorded.PlanDay)
	require.NoError(t, err)
	assert.NotEmpty(t, byDay)

	recent, err := repo.GetRecent(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.LessOrEqual(t, len(recent), 5)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// ---------- RecommendationRepo ----------

func TestRecommendationRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewRecommendationRepo(pool)
	ctx := context.Background()

	failure := "HTTP 502"
	recorded, err := repo.Record(ctx, &models.RecommendationRun{
		CoinData: "BTC 45000",
		Prompt:   "find longs",
		Rows:     []map[string]any{{"symbol": "BTC", "confidence": 78}},
		DemoMode: true,
		Failure:  &failure,
	})
	require.NoError(t, err)
	assert.True(t, recorded.DemoMode)
	require.NotNil(t, recorded.Failure)
	assert.Equal(t, failure, *recorded.Failure)
	require.Len(t, recorded.Rows, 1)
	assert.Equal(t, json.Number("78"), recorded.Rows[0]["confidence"])

	got, err := repo.Get(ctx, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, "find longs", got.Prompt)

	recent, err := repo.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
