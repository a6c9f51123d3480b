package market

import (
	"fmt"
	"math"
	"time"

	"github.com/kjannette/trahn-planner/internal/models"
)

const (
	indicatorPeriod = 14
	// trendBand is the relative volume change treated as flat.
	trendBand = 0.10
)

type Kline struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// BuildSnapshot derives a MarketSnapshot from klines ordered oldest first.
// It needs at least period+1 klines for ATR and RSI.
func BuildSnapshot(symbol, expiry string, klines []Kline) (models.MarketSnapshot, error) {
	if len(klines) <= indicatorPeriod {
		return models.MarketSnapshot{}, fmt.Errorf("need more than %d klines, got %d", indicatorPeriod, len(klines))
	}

	vwap, err := VWAP(klines)
	if err != nil {
		return models.MarketSnapshot{}, err
	}

	closes := make([]float64, len(klines))
	volumes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
		volumes[i] = k.Volume
	}

	return models.MarketSnapshot{
		Symbol:         symbol,
		ContractExpiry: expiry,
		CurrentPrice:   closes[len(closes)-1],
		VWAP:           vwap,
		ATR:            ATR(klines, indicatorPeriod),
		RSI:            RSI(closes, indicatorPeriod),
		VolumeTrend:    VolumeTrend(volumes),
	}, nil
}

// VWAP is Σ(typical price × volume) / Σ volume with typical price (H+L+C)/3.
func VWAP(klines []Kline) (float64, error) {
	var pv, vol float64
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		pv += typical * k.Volume
		vol += k.Volume
	}
	if vol == 0 {
		return 0, fmt.Errorf("vwap: zero volume over %d klines", len(klines))
	}
	return pv / vol, nil
}

// ATR is the simple average of the last period true ranges.
func ATR(klines []Kline, period int) float64 {
	if len(klines) <= period {
		return 0
	}
	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		prevClose := klines[i-1].Close
		tr := math.Max(klines[i].High-klines[i].Low,
			math.Max(math.Abs(klines[i].High-prevClose), math.Abs(klines[i].Low-prevClose)))
		sum += tr
	}
	return sum / float64(period)
}

// RSI over the last period price changes. Returns 50 with too little data and
// 100 when there were no losses.
func RSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}

	if loss == 0 {
		return 100
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100 - 100/(1+rs)
}

// VolumeTrend compares the average volume of the recent half of the window
// with the older half.
func VolumeTrend(volumes []float64) string {
	if len(volumes) < 2 {
		return models.VolumeStable
	}
	mid := len(volumes) / 2
	older := average(volumes[:mid])
	recent := average(volumes[mid:])
	if older == 0 {
		if recent > 0 {
			return models.VolumeIncreasing
		}
		return models.VolumeStable
	}

	change := (recent - older) / older
	switch {
	case change > trendBand:
		return models.VolumeIncreasing
	case change < -trendBand:
		return models.VolumeDecreasing
	default:
		return models.VolumeStable
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
