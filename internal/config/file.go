package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/kjannette/trahn-planner/internal/results"
	"gopkg.in/yaml.v2"
)

const defaultPrompt = "Analyze the pasted futures market data and recommend long and short entries " +
	"with take-profit, stop-loss, leverage and a confidence score for each."

// fileConfig is the optional YAML overlay. Absent keys keep the env/default value.
type fileConfig struct {
	Defaults struct {
		Market  *models.MarketSnapshot  `yaml:"market"`
		Account *models.AccountSettings `yaml:"account"`
	} `yaml:"defaults"`
	Recommendations struct {
		DefaultPrompt string           `yaml:"default_prompt"`
		MockRows      []map[string]any `yaml:"mock_rows"`
	} `yaml:"recommendations"`
	WatchSymbols []string `yaml:"watch_symbols"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return c.applyYAML(data)
}

func (c *Config) applyYAML(data []byte) error {
	// Defaults decode over the current values so partial sections merge.
	market, account := c.DefaultMarket, c.DefaultAccount
	var fc fileConfig
	fc.Defaults.Market = &market
	fc.Defaults.Account = &account
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	c.DefaultMarket = market
	c.DefaultAccount = account
	if fc.Recommendations.DefaultPrompt != "" {
		c.DefaultPrompt = fc.Recommendations.DefaultPrompt
	}
	if len(fc.Recommendations.MockRows) > 0 {
		c.MockRows = make([]results.Row, len(fc.Recommendations.MockRows))
		for i, r := range fc.Recommendations.MockRows {
			c.MockRows[i] = stringKeys(r).(map[string]any)
		}
	}
	if len(fc.WatchSymbols) > 0 && os.Getenv("WATCH_SYMBOLS") == "" {
		c.WatchSymbols = fc.WatchSymbols
	}
	return nil
}

// stringKeys converts the map[interface{}]interface{} values yaml.v2 produces
// for nested mappings into map[string]any so rows stay JSON-encodable.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = stringKeys(val)
		}
		return out
	case []interface{}:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stringKeys(val)
		}
		return out
	default:
		return v
	}
}

// DefaultMockRows are served when the recommendation endpoint is unreachable.
func DefaultMockRows() []results.Row {
	return []results.Row{
		{
			"symbol":        "BTC",
			"strategy":      "VWAP pullback long",
			"direction":     "LONG",
			"entry_price":   44740.0,
			"take_profit":   45250.0,
			"stop_loss":     44260.0,
			"leverage":      5.0,
			"position_size": 2.0,
			"confidence":    78.0,
			"risk_level":    "Medium",
			"rationale":     "Price holding above VWAP with rising volume; RSI neutral at 55.",
		},
		{
			"symbol":        "ETH",
			"strategy":      "Range fade short",
			"direction":     "SHORT",
			"entry_price":   2710.0,
			"take_profit":   2625.0,
			"stop_loss":     2765.0,
			"leverage":      3.0,
			"position_size": 15.0,
			"confidence":    64.0,
			"risk_level":    "High",
			"rationale":     "Rejected twice at range high; momentum fading on lower volume.",
		},
	}
}
