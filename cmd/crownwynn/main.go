package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jakefrenzel/CrownWynn/internal/api"
	"github.com/jakefrenzel/CrownWynn/internal/config"
	"github.com/jakefrenzel/CrownWynn/internal/ledger"
	"github.com/jakefrenzel/CrownWynn/internal/rounds"
	"github.com/jakefrenzel/CrownWynn/internal/seeds"
	"github.com/jakefrenzel/CrownWynn/internal/store"
	"github.com/jakefrenzel/CrownWynn/internal/userlock"
)

func main() {
	logger := log.New(os.Stdout, "[CROWNWYNN] ", log.LstdFlags)

	if err := run(logger); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}

func run(logger *log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	minBet, err := decimal.NewFromString(cfg.MinBet)
	if err != nil {
		return fmt.Errorf("parse min bet: %w", err)
	}
	maxBet, err := decimal.NewFromString(cfg.MaxBet)
	if err != nil {
		return fmt.Errorf("parse max bet: %w", err)
	}
	openingBalance, err := decimal.NewFromString(cfg.OpeningBalance)
	if err != nil {
		return fmt.Errorf("parse opening balance: %w", err)
	}
	if cfg.HouseEdge < 0 || cfg.HouseEdge >= 1 {
		return fmt.Errorf("house edge %v out of range [0, 1)", cfg.HouseEdge)
	}

	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	lg, err := openLedger(cfg, openingBalance)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	locks := userlock.NewRegistry()
	sm := seeds.NewManager(db, locks)
	rs := rounds.NewService(db, lg, sm, locks, rounds.Config{
		MinBet:    minBet,
		MaxBet:    maxBet,
		HouseEdge: cfg.HouseEdge,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.NewServer(rs, sm, lg, logger).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// retry payouts that could not be credited at settlement time
	go sweepPendingCredits(ctx, rs, cfg.CreditSweepInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (ledger=%s, db=%s)", cfg.Addr, cfg.LedgerBackend, cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openLedger(cfg config.Config, openingBalance decimal.Decimal) (ledger.Ledger, error) {
	switch cfg.LedgerBackend {
	case "sqlite":
		return ledger.NewSQLiteLedger(cfg.DBPath, openingBalance)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return ledger.NewRedisLedger(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, openingBalance)
	case "memory":
		return ledger.NewMemoryLedger(openingBalance), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

func sweepPendingCredits(ctx context.Context, rs *rounds.Service, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolved, err := rs.ResolvePendingCredits(ctx)
			if err != nil {
				logger.Printf("pending credit sweep: %v", err)
				continue
			}
			if resolved > 0 {
				logger.Printf("pending credit sweep: resolved %d round(s)", resolved)
			}
		}
	}
}
