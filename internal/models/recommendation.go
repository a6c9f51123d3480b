package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationRun is a persisted recommendation request and the rows it
// produced. Rows are kept exactly as received (or as mocked in demo mode).
type RecommendationRun struct {
	ID        uuid.UUID        `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	PlanDay   string           `json:"planDay"`
	CoinData  string           `json:"coinData"`
	Prompt    string           `json:"prompt"`
	Rows      []map[string]any `json:"recommendations"`
	DemoMode  bool             `json:"demoMode"`
	Failure   *string          `json:"failure,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
