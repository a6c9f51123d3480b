package models

import (
	"time"

	"github.com/google/uuid"
)

type TradeGrid struct {
	Strategy       string  `json:"strategy"` // "C1-L" or "C1-S"
	EntryPrice     float64 `json:"entryPrice"`
	TakeProfit     float64 `json:"takeProfit"`
	StopLoss       float64 `json:"stopLoss"`
	Contracts      int     `json:"contracts"`
	MaxProfit      float64 `json:"maxProfit"`
	MaxLoss        float64 `json:"maxLoss"`
	MarginRequired float64 `json:"marginRequired"`
	Leverage       float64 `json:"leverage"`
	NotionalValue  float64 `json:"notionalValue"`
}

// IsLong reports whether the grid is the long side of the plan.
func (g TradeGrid) IsLong() bool {
	return len(g.Strategy) > 0 && g.Strategy[len(g.Strategy)-1] == 'L'
}

type GridSummary struct {
	TotalMargin    float64 `json:"totalMargin"`
	TotalMaxProfit float64 `json:"totalMaxProfit"`
	TotalMaxLoss   float64 `json:"totalMaxLoss"`
}

// PlanRun is a persisted grid calculation.
type PlanRun struct {
	ID        uuid.UUID       `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	PlanDay   string          `json:"planDay"`
	Market    MarketSnapshot  `json:"market"`
	Account   AccountSettings `json:"account"`
	Grids     []TradeGrid     `json:"grids"`
	Summary   GridSummary     `json:"summary"`
	Warnings  []string        `json:"warnings,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
