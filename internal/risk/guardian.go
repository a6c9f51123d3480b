package risk

import (
	"fmt"

	"github.com/kjannette/trahn-planner/internal/models"
)

// Limits holds the review thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxLossPercentOfCash float64
	WarnOnLeverageCap    bool
}

// Guardian reviews a computed plan against the account it was sized for.
// It never rejects a plan; it only explains what looks risky.
type Guardian struct {
	limits Limits
}

func NewGuardian(limits Limits) *Guardian {
	return &Guardian{limits: limits}
}

// ReviewPlan returns warnings for the given grids, or nil if nothing stands out.
func (g *Guardian) ReviewPlan(grids []models.TradeGrid, s models.AccountSettings) []string {
	var warnings []string

	budget := s.CashAvailable * s.MarginConstraint / 100
	totalMargin := 0.0

	for _, grid := range grids {
		totalMargin += grid.MarginRequired

		if g.limits.WarnOnLeverageCap && s.MaxLeverage > 0 && grid.Leverage >= s.MaxLeverage {
			warnings = append(warnings, fmt.Sprintf(
				"%s: leverage pinned at max %.2fx, margin $%.2f exceeds the $%.2f margin budget",
				grid.Strategy, s.MaxLeverage, grid.MarginRequired, budget))
		}

		if g.limits.MaxLossPercentOfCash > 0 && s.CashAvailable > 0 {
			lossPct := grid.MaxLoss / s.CashAvailable * 100
			if lossPct > g.limits.MaxLossPercentOfCash {
				warnings = append(warnings, fmt.Sprintf(
					"%s: max loss $%.2f is %.2f%% of cash (limit %.2f%%)",
					grid.Strategy, grid.MaxLoss, lossPct, g.limits.MaxLossPercentOfCash))
			}
		}
	}

	if s.CashAvailable > 0 && totalMargin > s.CashAvailable {
		warnings = append(warnings, fmt.Sprintf(
			"total margin $%.2f exceeds available cash $%.2f", totalMargin, s.CashAvailable))
	}

	return warnings
}
