package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	// 23:30 EST is already the 18th in UTC.
	assert.Equal(t, "trade_recommendations_2026-10-18.xlsx", FileName(ts))
	assert.Equal(t, "trade_grids_BTC_2026-10-18.xlsx", GridFileName("BTC", ts))
}

func TestColumns(t *testing.T) {
	rows := []map[string]any{
		{"zeta": 1, "symbol": "BTC", "confidence": 80},
		{"alpha": "x", "entry_price": 44740},
	}
	assert.Equal(t, []string{"symbol", "entry_price", "confidence", "alpha", "zeta"}, Columns(rows))
	assert.Empty(t, Columns(nil))
}

func TestWriteRecommendations(t *testing.T) {
	rows := []map[string]any{
		{"symbol": "BTC", "entry_price": 44740.0, "tags": []any{"vwap", "atr"}},
		{"symbol": "ETH", "entry_price": 2650.5},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecommendations(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(recommendationsSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"symbol", "entry_price", "tags"}, got[0])
	assert.Equal(t, "BTC", got[1][0])
	assert.Equal(t, "44740", got[1][1])
	assert.Equal(t, `["vwap","atr"]`, got[1][2])
	assert.Equal(t, "ETH", got[2][0])
}

func TestWriteTradeGrids(t *testing.T) {
	grids := []models.TradeGrid{
		{Strategy: "C1-L", EntryPrice: 44740, TakeProfit: 44770, StopLoss: 44260, Contracts: 10,
			MaxProfit: 300, MaxLoss: 4800, MarginRequired: 74566.666666, Leverage: 6, NotionalValue: 447400},
		{Strategy: "C1-S", EntryPrice: 45160, TakeProfit: 45130, StopLoss: 45640, Contracts: 10,
			MaxProfit: 300, MaxLoss: 4800, MarginRequired: 75266.666666, Leverage: 6, NotionalValue: 451600},
	}
	sum := models.GridSummary{TotalMargin: 149833.333332, TotalMaxProfit: 600, TotalMaxLoss: 9600}

	var buf bytes.Buffer
	require.NoError(t, WriteTradeGrids(&buf, models.DefaultSnapshot(), grids, sum))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	margin, err := f.GetCellValue(gridsSheet, "H4")
	require.NoError(t, err)
	assert.Equal(t, "74566.67", margin)

	total, err := f.GetCellValue(gridsSheet, "A6")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)

	totalMargin, err := f.GetCellValue(gridsSheet, "H6")
	require.NoError(t, err)
	assert.Equal(t, "149833.33", totalMargin)
}

func TestCellValue(t *testing.T) {
	assert.Nil(t, cellValue(nil))
	assert.Equal(t, "x", cellValue("x"))
	assert.Equal(t, `{"a":1}`, cellValue(map[string]any{"a": 1}))
}
