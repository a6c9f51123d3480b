package models

// MarketSnapshot holds the market readings a plan is computed from.
type MarketSnapshot struct {
	Symbol         string  `json:"symbol" yaml:"symbol"`
	ContractExpiry string  `json:"contractExpiry" yaml:"contract_expiry"`
	CurrentPrice   float64 `json:"currentPrice" yaml:"current_price"`
	VWAP           float64 `json:"vwap" yaml:"vwap"`
	ATR            float64 `json:"atr" yaml:"atr"`
	RSI            float64 `json:"rsi" yaml:"rsi"`
	VolumeTrend    string  `json:"volumeTrend" yaml:"volume_trend"` // "increasing", "decreasing" or "stable"
}

// AccountSettings are the user's capital and sizing parameters.
type AccountSettings struct {
	CashAvailable    float64 `json:"cashAvailable" yaml:"cash_available"`
	TargetPnL        float64 `json:"targetPnL" yaml:"target_pnl"`
	MaxLeverage      float64 `json:"maxLeverage" yaml:"max_leverage"`
	ContractSize     float64 `json:"contractSize" yaml:"contract_size"`
	RiskPreference   string  `json:"riskPreference" yaml:"risk_preference"` // "tight", "balanced" or "wide"
	MarginConstraint float64 `json:"marginConstraint" yaml:"margin_constraint"` // percent of cash
}

const (
	VolumeIncreasing = "increasing"
	VolumeDecreasing = "decreasing"
	VolumeStable     = "stable"
)

func DefaultSnapshot() MarketSnapshot {
	return MarketSnapshot{
		Symbol:         "BTC",
		ContractExpiry: "25 JUL",
		CurrentPrice:   45000,
		VWAP:           44950,
		ATR:            1200,
		RSI:            55,
		VolumeTrend:    VolumeIncreasing,
	}
}

func DefaultSettings() AccountSettings {
	return AccountSettings{
		CashAvailable:    100000,
		TargetPnL:        300,
		MaxLeverage:      6,
		ContractSize:     1,
		RiskPreference:   "balanced",
		MarginConstraint: 20,
	}
}
