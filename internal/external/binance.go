package external

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/kjannette/trahn-planner/internal/market"
	"github.com/kjannette/trahn-planner/internal/models"
)

// PerpetualExpiry labels snapshots built from perpetual contracts.
const PerpetualExpiry = "PERP"

// BinanceFeed builds market snapshots from USDⓈ-M futures klines.
type BinanceFeed struct {
	client   *futures.Client
	cache    *cache.Cache
	interval string
	limit    int
}

type BinanceOptions struct {
	APIKey    string
	SecretKey string
	BaseURL   string // empty uses the production endpoint
	Interval  string
	Limit     int
	CacheTTL  time.Duration
}

func NewBinanceFeed(opts BinanceOptions) *BinanceFeed {
	c := futures.NewClient(opts.APIKey, opts.SecretKey)
	if opts.BaseURL != "" {
		c.BaseURL = opts.BaseURL
	}
	if opts.Interval == "" {
		opts.Interval = "1h"
	}
	if opts.Limit <= 0 {
		opts.Limit = 24
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &BinanceFeed{
		client:   c,
		cache:    cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		interval: opts.Interval,
		limit:    opts.Limit,
	}
}

// PairFor maps a base symbol like "btc" to its USDT perpetual "BTCUSDT".
func PairFor(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, "USDT") {
		return s
	}
	return s + "USDT"
}

// Snapshot returns the cached snapshot for symbol, fetching it on a miss.
func (b *BinanceFeed) Snapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	key := "snapshot:" + PairFor(symbol)
	if v, found := b.cache.Get(key); found {
		return v.(models.MarketSnapshot), nil
	}
	return b.Refresh(ctx, symbol)
}

// Refresh fetches klines for symbol and replaces the cached snapshot.
func (b *BinanceFeed) Refresh(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	pair := PairFor(symbol)

	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	raw, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(b.interval).
		Limit(b.limit).
		Do(ctx2)
	if err != nil {
		log.Errorf("binance klines %s: %v", pair, err)
		return models.MarketSnapshot{}, fmt.Errorf("klines %s: %w", pair, err)
	}

	klines, err := convertKlines(raw)
	if err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("klines %s: %w", pair, err)
	}

	base := strings.TrimSuffix(pair, "USDT")
	snap, err := market.BuildSnapshot(base, PerpetualExpiry, klines)
	if err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("snapshot %s: %w", pair, err)
	}

	b.cache.Set("snapshot:"+pair, snap, cache.DefaultExpiration)
	return snap, nil
}

func convertKlines(raw []*futures.Kline) ([]market.Kline, error) {
	out := make([]market.Kline, 0, len(raw))
	for _, k := range raw {
		var vals [5]float64
		for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("parse kline at %d: %w", k.OpenTime, err)
			}
			vals[i] = f
		}
		out = append(out, market.Kline{
			OpenTime: time.UnixMilli(k.OpenTime).UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return out, nil
}
