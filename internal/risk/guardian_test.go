package risk

import (
	"testing"

	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/stretchr/testify/assert"
)

func defaultPlan() ([]models.TradeGrid, models.AccountSettings) {
	s := models.DefaultSettings()
	grids := []models.TradeGrid{
		{Strategy: "C1-L", Leverage: 6, MarginRequired: 74566.67, MaxLoss: 4800},
		{Strategy: "C1-S", Leverage: 6, MarginRequired: 75266.67, MaxLoss: 4800},
	}
	return grids, s
}

func TestReviewPlan_AllDisabled(t *testing.T) {
	g := NewGuardian(Limits{})
	grids, s := defaultPlan()
	s.CashAvailable = 1_000_000

	assert.Empty(t, g.ReviewPlan(grids, s))
}

func TestReviewPlan_LeverageCap(t *testing.T) {
	g := NewGuardian(Limits{WarnOnLeverageCap: true})
	grids, s := defaultPlan()
	s.CashAvailable = 1_000_000

	w := g.ReviewPlan(grids, s)
	assert.Len(t, w, 2)
	assert.Contains(t, w[0], "C1-L: leverage pinned at max 6.00x")
}

func TestReviewPlan_LeverageBelowCap(t *testing.T) {
	g := NewGuardian(Limits{WarnOnLeverageCap: true})
	s := models.DefaultSettings()
	grids := []models.TradeGrid{{Strategy: "C1-L", Leverage: 2.5, MarginRequired: 20000}}

	assert.Empty(t, g.ReviewPlan(grids, s))
}

func TestReviewPlan_MaxLoss(t *testing.T) {
	g := NewGuardian(Limits{MaxLossPercentOfCash: 2})
	grids, s := defaultPlan()
	s.CashAvailable = 1_000_000

	assert.Empty(t, g.ReviewPlan(grids, s), "4800 is under 1 percent of 1M")

	s.CashAvailable = 100_000
	w := g.ReviewPlan(grids, s)
	// 4800 of 100000 is 4.8%, plus total margin above cash.
	assert.Len(t, w, 3)
	assert.Contains(t, w[0], "4.80% of cash")
}

func TestReviewPlan_TotalMarginAboveCash(t *testing.T) {
	g := NewGuardian(Limits{})
	grids, s := defaultPlan()

	w := g.ReviewPlan(grids, s)
	assert.Equal(t, []string{"total margin $149833.34 exceeds available cash $100000.00"}, w)
}
