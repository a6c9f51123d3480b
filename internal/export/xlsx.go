package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	recommendationsSheet = "Recommendations"
	gridsSheet           = "Trade Grids"
)

// preferredColumns leads the header row when present; other keys follow
// alphabetically.
var preferredColumns = []string{
	"symbol", "strategy", "direction", "entry_price", "take_profit", "stop_loss",
	"leverage", "position_size", "confidence", "risk_level", "rationale",
}

// FileName is the download name for a recommendation export made at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("trade_recommendations_%s.xlsx", now.UTC().Format("2006-01-02"))
}

// GridFileName is the download name for a trade grid export made at now.
func GridFileName(symbol string, now time.Time) string {
	return fmt.Sprintf("trade_grids_%s_%s.xlsx", symbol, now.UTC().Format("2006-01-02"))
}

// Columns returns the header for rows.
func Columns(rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}

	var cols []string
	for _, c := range preferredColumns {
		if seen[c] {
			cols = append(cols, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// WriteRecommendations writes the raw rows to a single-sheet workbook.
func WriteRecommendations(w io.Writer, rows []map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recommendationsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	cols := Columns(rows)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(recommendationsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		values := make([]any, len(cols))
		for j, c := range cols {
			values[j] = cellValue(r[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(recommendationsSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteTradeGrids writes the grid table followed by a totals row.
func WriteTradeGrids(w io.Writer, m models.MarketSnapshot, grids []models.TradeGrid, sum models.GridSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", gridsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	title := []any{m.Symbol, m.ContractExpiry, "price", round2(m.CurrentPrice), "vwap", round2(m.VWAP), "atr", round2(m.ATR), "rsi", round2(m.RSI)}
	if err := f.SetSheetRow(gridsSheet, "A1", &title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}

	header := []any{"Strategy", "Entry", "Take Profit", "Stop Loss", "Contracts",
		"Max Profit", "Max Loss", "Margin", "Leverage", "Notional"}
	if err := f.SetSheetRow(gridsSheet, "A3", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 4
	for _, g := range grids {
		values := []any{g.Strategy, round2(g.EntryPrice), round2(g.TakeProfit), round2(g.StopLoss),
			g.Contracts, round2(g.MaxProfit), round2(g.MaxLoss), round2(g.MarginRequired),
			round2(g.Leverage), round2(g.NotionalValue)}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(gridsSheet, cell, &values); err != nil {
			return fmt.Errorf("write %s: %w", g.Strategy, err)
		}
		row++
	}

	totals := []any{"Total", nil, nil, nil, nil, round2(sum.TotalMaxProfit), round2(sum.TotalMaxLoss), round2(sum.TotalMargin)}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(gridsSheet, cell, &totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64, float32, int, int64:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
