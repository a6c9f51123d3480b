package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/trahn-planner/internal/httputil"
	"github.com/kjannette/trahn-planner/internal/models"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// coingeckoIDs maps ticker symbols to CoinGecko coin ids.
var coingeckoIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"XRP": "ripple",
	"SOL": "solana",
}

type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = coingeckoBaseURL
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

// GetPrice returns the USD spot price for a ticker symbol such as "BTC".
func (c *CoinGeckoClient) GetPrice(ctx context.Context, symbol string) (models.Quote, error) {
	sym := strings.ToUpper(symbol)
	id, ok := coingeckoIDs[sym]
	if !ok {
		return models.Quote{}, fmt.Errorf("unsupported symbol %q", symbol)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, id)
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return models.Quote{}, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Quote{}, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return models.Quote{}, fmt.Errorf("decode: %w", err)
	}

	price := data[id].USD
	if price <= 0 {
		return models.Quote{}, fmt.Errorf("invalid price for %s: %f", sym, price)
	}

	return models.Quote{
		Symbol:    sym,
		Price:     price,
		Source:    "coingecko",
		Timestamp: time.Now().UTC(),
	}, nil
}
