package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/kjannette/trahn-planner/internal/results"
)

type Config struct {
	// Server
	Port            int
	APIKey          string
	CORSAllowOrigin string
	TrustProxy      bool
	LogLevel        string

	// Secrets (from .env)
	RecommendAPIKey     string
	WebhookURL          string
	BotName             string
	EthereumAPIEndpoint string
	BinanceAPIKey       string
	BinanceSecretKey    string

	// Database
	PersistenceEnabled bool
	DBHost             string
	DBPort             int
	DBName             string
	DBUser             string
	DBPassword         string

	// Cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Recommendations
	RecommendEndpoint      string
	RecommendTimeout       time.Duration
	RecommendRetryAttempts int
	RecommendRatePerMinute int

	// Market data
	BinanceBaseURL       string
	KlineInterval        string
	KlineLimit           int
	SnapshotRefresh      time.Duration
	WatchSymbols         []string
	QuoteTokenAddress    string
	QuoteTokenDecimals   int
	WETHAddress          string
	UniswapRouterAddress string

	// Plan review
	MaxLossPercentOfCash float64
	WarnOnLeverageCap    bool

	// YAML overlay
	ConfigFile     string
	DefaultMarket  models.MarketSnapshot
	DefaultAccount models.AccountSettings
	DefaultPrompt  string
	MockRows       []results.Row
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            envInt("PORT", 3001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		TrustProxy:      envBool("TRUST_PROXY", false),
		LogLevel:        envStr("LOG_LEVEL", "info"),

		RecommendAPIKey:     envStr("RECOMMEND_API_KEY", ""),
		WebhookURL:          envStr("WEBHOOK_URL", ""),
		BotName:             envStr("BOT_NAME", "TrahnGridPlanner"),
		EthereumAPIEndpoint: envStr("ETHEREUM_API_ENDPOINT", ""),
		BinanceAPIKey:       envStr("BINANCE_API_KEY", ""),
		BinanceSecretKey:    envStr("BINANCE_SECRET_KEY", ""),

		PersistenceEnabled: envBool("PERSISTENCE_ENABLED", false),
		DBHost:             envStr("DB_HOST", "localhost"),
		DBPort:             envInt("DB_PORT", 5432),
		DBName:             envStr("DB_NAME", "trahn_grid_planner"),
		DBUser:             envStr("DB_USER", ""),
		DBPassword:         envStr("DB_PASSWORD", ""),

		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(envInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		RecommendEndpoint:      envStr("RECOMMEND_ENDPOINT", ""),
		RecommendTimeout:       time.Duration(envInt("RECOMMEND_TIMEOUT_SECONDS", 30)) * time.Second,
		RecommendRetryAttempts: envInt("RECOMMEND_RETRY_ATTEMPTS", 1),
		RecommendRatePerMinute: envInt("RECOMMEND_RATE_PER_MINUTE", 30),

		BinanceBaseURL:       envStr("BINANCE_FUTURES_BASE_URL", ""),
		KlineInterval:        envStr("KLINE_INTERVAL", "1h"),
		KlineLimit:           envInt("KLINE_LIMIT", 24),
		SnapshotRefresh:      time.Duration(envInt("SNAPSHOT_REFRESH_MINUTES", 5)) * time.Minute,
		WatchSymbols:         envList("WATCH_SYMBOLS", []string{"BTC", "ETH", "XRP"}),
		QuoteTokenAddress:    envStr("QUOTE_TOKEN_ADDRESS", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		QuoteTokenDecimals:   envInt("QUOTE_TOKEN_DECIMALS", 6),
		WETHAddress:          "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		UniswapRouterAddress: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D",

		MaxLossPercentOfCash: envFloat("MAX_LOSS_PERCENT_OF_CASH", 5),
		WarnOnLeverageCap:    envBool("WARN_ON_LEVERAGE_CAP", true),

		ConfigFile:     envStr("PLANNER_CONFIG", "planner.yaml"),
		DefaultMarket:  models.DefaultSnapshot(),
		DefaultAccount: models.DefaultSettings(),
		DefaultPrompt:  defaultPrompt,
		MockRows:       DefaultMockRows(),
	}

	if err := cfg.applyFile(cfg.ConfigFile); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT %d is out of range", c.Port))
	}
	if c.PersistenceEnabled && c.DBUser == "" {
		errs = append(errs, "DB_USER is required when PERSISTENCE_ENABLED=true")
	}
	if c.RecommendRetryAttempts < 1 {
		errs = append(errs, "RECOMMEND_RETRY_ATTEMPTS must be at least 1")
	}
	if c.KlineLimit < 15 {
		errs = append(errs, "KLINE_LIMIT must be at least 15 for ATR/RSI(14)")
	}
	if len(c.MockRows) == 0 {
		errs = append(errs, "mock recommendation rows must not be empty")
	}

	if c.RecommendEndpoint == "" {
		fmt.Println("[WARN] RECOMMEND_ENDPOINT not set — recommendations will always run in demo mode")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set — REST API has no authentication")
	}
	if !c.PersistenceEnabled {
		fmt.Println("[WARN] PERSISTENCE_ENABLED=false — plan and recommendation history is not stored")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Futures Grid Planner Configuration ===")
	fmt.Printf("API Port: %d\n", c.Port)
	fmt.Printf("Log Level: %s\n", c.LogLevel)
	fmt.Println("--------------------------------------")
	fmt.Println("Defaults:")
	fmt.Printf("  Market: %s %s @ $%.2f (VWAP %.2f, ATR %.2f)\n",
		c.DefaultMarket.Symbol, c.DefaultMarket.ContractExpiry, c.DefaultMarket.CurrentPrice,
		c.DefaultMarket.VWAP, c.DefaultMarket.ATR)
	fmt.Printf("  Account: cash $%.0f, target $%.0f, max %.1fx, margin %.0f%%\n",
		c.DefaultAccount.CashAvailable, c.DefaultAccount.TargetPnL,
		c.DefaultAccount.MaxLeverage, c.DefaultAccount.MarginConstraint)
	fmt.Println("--------------------------------------")
	fmt.Printf("Recommendations: %s\n", boolLabel(c.RecommendEndpoint != "", c.RecommendEndpoint, "demo mode only"))
	fmt.Printf("Persistence: %s\n", boolLabel(c.PersistenceEnabled, fmt.Sprintf("%s:%d/%s", c.DBHost, c.DBPort, c.DBName), "disabled"))
	fmt.Printf("Cache: %s\n", boolLabel(c.RedisAddr != "", "redis "+c.RedisAddr, "in-memory"))
	fmt.Printf("Watch Symbols: %s (every %s)\n", strings.Join(c.WatchSymbols, ", "), c.SnapshotRefresh)
	fmt.Printf("On-chain ETH quote: %s\n", boolLabel(c.EthereumAPIEndpoint != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
