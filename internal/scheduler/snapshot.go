package scheduler

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjannette/trahn-planner/internal/logger"
	"github.com/kjannette/trahn-planner/internal/models"
)

// SnapshotSource refreshes the cached snapshot for a symbol.
type SnapshotSource interface {
	Refresh(ctx context.Context, symbol string) (models.MarketSnapshot, error)
}

type SnapshotSchedulerConfig struct {
	Interval          time.Duration // e.g. 5*time.Minute
	Symbols           []string
	MoveThreshold     float64 // percent VWAP change that counts as a significant move
	OnSnapshot        func(snap models.MarketSnapshot)
	OnSignificantMove func(prev, curr models.MarketSnapshot, changePct float64)
}

type SnapshotScheduler struct {
	source SnapshotSource
	cfg    SnapshotSchedulerConfig
	log    *logrus.Entry

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	last    map[string]models.MarketSnapshot
}

func NewSnapshotScheduler(source SnapshotSource, cfg SnapshotSchedulerConfig) *SnapshotScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MoveThreshold <= 0 {
		cfg.MoveThreshold = 2
	}
	return &SnapshotScheduler{
		source: source,
		cfg:    cfg,
		log:    logger.Component("snapshot-scheduler"),
		last:   make(map[string]models.MarketSnapshot),
	}
}

func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Info("Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		if err := s.RefreshNow(ctx); err != nil {
			s.log.Warnf("Initial refresh failed: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
				if err := s.RefreshNow(ctx); err != nil {
					s.log.Warnf("Refresh failed: %v", err)
				}
				cancel()
			}
		}
	}()

	s.log.Infof("Started (every %s for %s)", s.cfg.Interval, strings.Join(s.cfg.Symbols, ", "))
}

func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	s.log.Info("Stopped")
}

func (s *SnapshotScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Last returns the most recent snapshot refreshed for symbol.
func (s *SnapshotScheduler) Last(symbol string) (models.MarketSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.last[strings.ToUpper(symbol)]
	return snap, ok
}

// RefreshNow refreshes every watched symbol. A failing symbol does not stop
// the others; the returned error lists the failures.
func (s *SnapshotScheduler) RefreshNow(ctx context.Context) error {
	var failed []string
	for _, sym := range s.cfg.Symbols {
		if err := s.refresh(ctx, strings.ToUpper(sym)); err != nil {
			s.log.Warnf("%s: %v", sym, err)
			failed = append(failed, sym)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("refresh failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func (s *SnapshotScheduler) refresh(ctx context.Context, symbol string) error {
	snap, err := s.source.Refresh(ctx, symbol)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev, hadPrev := s.last[symbol]
	s.last[symbol] = snap
	s.mu.Unlock()

	s.log.Debugf("%s: price $%.2f | VWAP $%.2f | ATR %.2f | RSI %.1f | volume %s",
		symbol, snap.CurrentPrice, snap.VWAP, snap.ATR, snap.RSI, snap.VolumeTrend)

	if s.cfg.OnSnapshot != nil {
		s.cfg.OnSnapshot(snap)
	}

	if !hadPrev || prev.VWAP <= 0 {
		return nil
	}
	change := (snap.VWAP - prev.VWAP) / prev.VWAP * 100
	if math.Abs(change) >= s.cfg.MoveThreshold {
		s.log.Infof("%s: VWAP moved %.2f%% ($%.2f -> $%.2f)", symbol, change, prev.VWAP, snap.VWAP)
		if s.cfg.OnSignificantMove != nil {
			s.cfg.OnSignificantMove(prev, snap, change)
		}
	}
	return nil
}
