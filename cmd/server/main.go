package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/trahn-planner/internal/api"
	"github.com/kjannette/trahn-planner/internal/cache"
	"github.com/kjannette/trahn-planner/internal/config"
	"github.com/kjannette/trahn-planner/internal/db"
	"github.com/kjannette/trahn-planner/internal/ethereum"
	"github.com/kjannette/trahn-planner/internal/external"
	"github.com/kjannette/trahn-planner/internal/httputil"
	"github.com/kjannette/trahn-planner/internal/logger"
	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/kjannette/trahn-planner/internal/notifications"
	"github.com/kjannette/trahn-planner/internal/recommend"
	"github.com/kjannette/trahn-planner/internal/repository"
	"github.com/kjannette/trahn-planner/internal/risk"
	"github.com/kjannette/trahn-planner/internal/scheduler"
	"github.com/kjannette/trahn-planner/internal/strategy"
)

const banner = `
╔══════════════════════════════════════╗
║    TRAHN Futures Grid Planner v0.3   ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Component("main")

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	deps := api.Deps{
		Guardian: risk.NewGuardian(risk.Limits{
			MaxLossPercentOfCash: cfg.MaxLossPercentOfCash,
			WarnOnLeverageCap:    cfg.WarnOnLeverageCap,
		}),
		DefaultMarket:  cfg.DefaultMarket,
		DefaultAccount: cfg.DefaultAccount,
		DefaultPrompt:  cfg.DefaultPrompt,
	}

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database (optional)
	if cfg.PersistenceEnabled {
		dbLog := logger.Component("db")
		dbLog.Infof("Connecting to %s:%d/%s ...", cfg.DBHost, cfg.DBPort, cfg.DBName)
		pool, err := db.Connect(cfg.DSN())
		if err != nil {
			dbLog.Fatalf("Connection failed: %v", err)
		}
		defer func() {
			pool.Close()
			dbLog.Info("Connection pool closed")
		}()

		if err := db.TestConnection(pool); err != nil {
			dbLog.Fatalf("Test query failed: %v", err)
		}

		migrateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = db.Migrate(migrateCtx, pool)
		cancel()
		if err != nil {
			dbLog.Fatalf("Migration failed: %v", err)
		}

		deps.DB = pool
		deps.Plans = repository.NewPlanRepo(pool)
		deps.Recommendations = repository.NewRecommendationRepo(pool)
	}

	// Response cache: Redis when configured and reachable, in-memory otherwise
	var respCache cache.Cache = cache.NewMemory(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warnf("Redis at %s unreachable (%v), using in-memory cache", cfg.RedisAddr, err)
			rc.Close()
		} else {
			respCache = rc
			defer rc.Close()
		}
	}

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName)
	deps.Notifier = notify

	// Recommendations
	retry := httputil.Single
	if cfg.RecommendRetryAttempts > 1 {
		retry = httputil.RetryConfig{
			MaxAttempts: cfg.RecommendRetryAttempts,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		}
	}
	deps.Recommender = recommend.NewClient(recommend.Options{
		Endpoint:      cfg.RecommendEndpoint,
		APIKey:        cfg.RecommendAPIKey,
		Timeout:       cfg.RecommendTimeout,
		Retry:         retry,
		RatePerMinute: cfg.RecommendRatePerMinute,
		Cache:         respCache,
		CacheTTL:      cfg.CacheTTL,
		MockRows:      cfg.MockRows,
	})

	// Market feeds
	feed := external.NewBinanceFeed(external.BinanceOptions{
		APIKey:    cfg.BinanceAPIKey,
		SecretKey: cfg.BinanceSecretKey,
		BaseURL:   cfg.BinanceBaseURL,
		Interval:  cfg.KlineInterval,
		Limit:     cfg.KlineLimit,
		CacheTTL:  cfg.SnapshotRefresh,
	})
	deps.Feed = feed
	deps.Prices = external.NewCoinGeckoClient("")

	if cfg.EthereumAPIEndpoint != "" {
		ethClient, err := ethereum.NewClient(cfg.EthereumAPIEndpoint)
		if err != nil {
			log.Warnf("Ethereum RPC unavailable, on-chain quotes disabled: %v", err)
		} else if block, err := ethBlock(ctx, ethClient); err != nil {
			log.Warnf("Ethereum RPC not answering, on-chain quotes disabled: %v", err)
			ethClient.Close()
		} else {
			log.Infof("Ethereum RPC connected at block %d", block)
			defer ethClient.Close()
			quoter, err := ethereum.NewUniswapQuoter(ethClient,
				cfg.UniswapRouterAddress, cfg.WETHAddress, cfg.QuoteTokenAddress, cfg.QuoteTokenDecimals)
			if err != nil {
				log.Warnf("Uniswap quoter setup failed: %v", err)
			} else {
				deps.OnChain = quoter
			}
		}
	}

	// 1. Snapshot scheduler: replans with the default account on large VWAP moves
	sched := scheduler.NewSnapshotScheduler(feed, scheduler.SnapshotSchedulerConfig{
		Interval: cfg.SnapshotRefresh,
		Symbols:  cfg.WatchSymbols,
		OnSignificantMove: func(prev, curr models.MarketSnapshot, changePct float64) {
			grids, err := strategy.CalculateTradeGrids(curr, cfg.DefaultAccount)
			if err != nil {
				log.Warnf("Replan for %s failed: %v", curr.Symbol, err)
				return
			}
			notify.SendPlan(curr, strategy.FormatGridDisplay(curr, grids),
				[]string{fmt.Sprintf("VWAP moved %.2f%% since last refresh", changePct)})
		},
	})
	if len(cfg.WatchSymbols) > 0 {
		sched.Start()
	} else {
		log.Info("Snapshot scheduler skipped - no watch symbols configured")
	}

	// 2. API server
	srv := api.NewServer(deps, api.Options{
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		CORSOrigin:             cfg.CORSAllowOrigin,
		TrustProxy:             cfg.TrustProxy,
		RecommendRatePerMinute: cfg.RecommendRatePerMinute,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Component("api").Fatalf("Server error: %v", err)
		}
	}()

	log.Info("All services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Component("api").Errorf("Shutdown error: %v", err)
	}
	log.Info("Server closed")
	log.Info("Shutdown complete")
}

func ethBlock(ctx context.Context, c *ethereum.Client) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.BlockNumber(ctx)
}
