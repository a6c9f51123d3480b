package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kjannette/trahn-planner/internal/models"
)

const (
	StrategyLong  = "C1-L"
	StrategyShort = "C1-S"

	// EntryATRMultiplier places the entry band around VWAP (0.15-0.2 range).
	EntryATRMultiplier = 0.175
	// StopATRMultiplier places the stop-loss away from entry.
	StopATRMultiplier = 0.4
	// takeProfitDivisor scales targetPnL into a price move per contract unit.
	takeProfitDivisor = 10

	contractEpsilon = 1e-9
)

var ErrInvalidInput = errors.New("invalid plan input")

// Validate rejects inputs that would divide by zero or place any grid price
// (entry, take-profit or stop-loss) at or below zero. Every offending field
// is reported.
func Validate(m models.MarketSnapshot, s models.AccountSettings) error {
	var errs []error
	if s.ContractSize <= 0 {
		errs = append(errs, fmt.Errorf("contractSize must be positive, got %g", s.ContractSize))
	}
	if s.TargetPnL <= 0 {
		errs = append(errs, fmt.Errorf("targetPnL must be positive, got %g", s.TargetPnL))
	}
	if s.CashAvailable <= 0 {
		errs = append(errs, fmt.Errorf("cashAvailable must be positive, got %g", s.CashAvailable))
	}
	if s.MarginConstraint <= 0 {
		errs = append(errs, fmt.Errorf("marginConstraint must be positive, got %g", s.MarginConstraint))
	}
	if s.MaxLeverage <= 0 {
		errs = append(errs, fmt.Errorf("maxLeverage must be positive, got %g", s.MaxLeverage))
	}
	if m.VWAP <= 0 {
		errs = append(errs, fmt.Errorf("vwap must be positive, got %g", m.VWAP))
	}
	if m.ATR < 0 {
		errs = append(errs, fmt.Errorf("atr must not be negative, got %g", m.ATR))
	}
	if m.VWAP > 0 && m.ATR >= 0 && m.VWAP-EntryATRMultiplier*m.ATR <= 0 {
		errs = append(errs, fmt.Errorf("long entry %.2f is not positive (vwap %g, atr %g)",
			m.VWAP-EntryATRMultiplier*m.ATR, m.VWAP, m.ATR))
	}
	if m.VWAP > 0 && m.ATR >= 0 {
		if sl := m.VWAP - (EntryATRMultiplier+StopATRMultiplier)*m.ATR; sl <= 0 {
			errs = append(errs, fmt.Errorf("long stopLoss %.2f is not positive (vwap %g, atr %g)", sl, m.VWAP, m.ATR))
		}
		if s.ContractSize > 0 && s.TargetPnL > 0 {
			tp := m.VWAP + EntryATRMultiplier*m.ATR - s.TargetPnL/(takeProfitDivisor*s.ContractSize)
			if tp <= 0 {
				errs = append(errs, fmt.Errorf("short takeProfit %.2f is not positive (vwap %g, atr %g, targetPnL %g)",
					tp, m.VWAP, m.ATR, s.TargetPnL))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
}

// CalculateTradeGrids produces the long and short grid for one snapshot, long first.
func CalculateTradeGrids(m models.MarketSnapshot, s models.AccountSettings) ([]models.TradeGrid, error) {
	if err := Validate(m, s); err != nil {
		return nil, err
	}

	entryLong := m.VWAP - EntryATRMultiplier*m.ATR
	entryShort := m.VWAP + EntryATRMultiplier*m.ATR
	move := s.TargetPnL / (takeProfitDivisor * s.ContractSize)

	long := buildGrid(StrategyLong, entryLong, entryLong+move, entryLong-StopATRMultiplier*m.ATR, s)
	short := buildGrid(StrategyShort, entryShort, entryShort-move, entryShort+StopATRMultiplier*m.ATR, s)

	return []models.TradeGrid{long, short}, nil
}

func buildGrid(name string, entry, tp, sl float64, s models.AccountSettings) models.TradeGrid {
	contracts := ContractsNeeded(s.TargetPnL, entry, tp, s.ContractSize)
	size := float64(contracts) * s.ContractSize
	notional := entry * size

	budget := s.CashAvailable * (s.MarginConstraint / 100)
	leverage := math.Min(notional/budget, s.MaxLeverage)

	return models.TradeGrid{
		Strategy:       name,
		EntryPrice:     entry,
		TakeProfit:     tp,
		StopLoss:       sl,
		Contracts:      contracts,
		MaxProfit:      s.TargetPnL,
		MaxLoss:        math.Abs(entry-sl) * size,
		MarginRequired: notional / leverage,
		Leverage:       leverage,
		NotionalValue:  notional,
	}
}

// ContractsNeeded returns how many contracts capture targetPnL over the
// entry→tp move. Float noise below 1e-9 is ignored before rounding up and the
// result is never below 1.
func ContractsNeeded(targetPnL, entry, tp, contractSize float64) int {
	move := math.Abs(tp - entry)
	if move == 0 || contractSize <= 0 {
		return 1
	}
	n := int(math.Ceil(targetPnL/(move*contractSize) - contractEpsilon))
	if n < 1 {
		return 1
	}
	return n
}

func Summarize(grids []models.TradeGrid) models.GridSummary {
	var s models.GridSummary
	for _, g := range grids {
		s.TotalMargin += g.MarginRequired
		s.TotalMaxProfit += g.MaxProfit
		s.TotalMaxLoss += g.MaxLoss
	}
	return s
}

func FormatGridDisplay(m models.MarketSnapshot, grids []models.TradeGrid) string {
	if len(grids) == 0 {
		return "No trade grids calculated."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  price %s  vwap %s  atr %s  rsi %.1f\n",
		m.Symbol, m.ContractExpiry, money(m.CurrentPrice), money(m.VWAP), money(m.ATR), m.RSI)
	b.WriteString("┌──────┬────────────┬────────────┬────────────┬──────┬──────────┬────────────┐\n")
	b.WriteString("│ Side │   Entry    │    TP      │    SL      │ Qty  │ Leverage │   Margin   │\n")
	b.WriteString("├──────┼────────────┼────────────┼────────────┼──────┼──────────┼────────────┤\n")
	for _, g := range grids {
		fmt.Fprintf(&b, "│ %-4s │ %10s │ %10s │ %10s │ %4d │ %7.2fx │ %10s │\n",
			g.Strategy, money(g.EntryPrice), money(g.TakeProfit), money(g.StopLoss),
			g.Contracts, g.Leverage, money(g.MarginRequired))
	}
	sum := Summarize(grids)
	b.WriteString("└──────┴────────────┴────────────┴────────────┴──────┴──────────┴────────────┘\n")
	fmt.Fprintf(&b, "Total margin $%s │ Max profit $%s │ Max loss -$%s",
		humanize.Commaf(math.Round(sum.TotalMargin)),
		humanize.Commaf(math.Round(sum.TotalMaxProfit)),
		humanize.Commaf(math.Round(sum.TotalMaxLoss)))
	return b.String()
}

func money(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}
