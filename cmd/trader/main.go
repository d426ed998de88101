package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"btc-paper-trader-go/internal/binance"
	"btc-paper-trader-go/internal/config"
	"btc-paper-trader-go/internal/database"
	"btc-paper-trader-go/internal/execution"
	"btc-paper-trader-go/internal/logger"
	"btc-paper-trader-go/internal/trader"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "trader")
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewStore(db, cfg.Trading.Symbol, log)
	log.Info("Database connection successful and schema migrated.")

	// Restore the paper account or open a fresh one
	state, engineCfg, err := restore(store, &cfg)
	if err != nil {
		log.Fatal("Failed to restore paper account", zap.Error(err))
	}

	seed := cfg.Simulator.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faults := execution.NewRandomFaults(cfg.Simulator.Faults(), rand.NewSource(seed))
	notifier := trader.NewNotifier(log)

	exec := execution.NewEngine(engineCfg, state,
		execution.WithLogger(log),
		execution.WithFaults(faults),
		execution.WithPersister(store),
		execution.WithNotifier(notifier),
	)

	// Initialize Binance market data clients
	restClient := binance.NewRestClient(&cfg.Binance, log)
	stream := binance.NewKlineStream(cfg.Binance.StreamURL, cfg.Trading.Symbol, "1s", log)

	strategy, err := trader.NewStrategy(&cfg.Trading, log)
	if err != nil {
		log.Fatal("Failed to create strategy", zap.Error(err))
	}

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := restClient.GetServerTime(ctx); err != nil {
		log.Warn("Binance API unreachable, continuing on the stream only", zap.Error(err))
	} else {
		log.Info("Successfully connected to Binance API.")
	}

	tradeEngine := trader.NewEngine(log, &cfg, exec, restClient, stream, strategy, notifier)
	apiServer := trader.NewAPIServer(tradeEngine, cfg.Server.Port, log)
	apiServer.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tradeEngine.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutdown signal received, gracefully shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return apiServer.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Trader stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Trader has been shut down.")
}

// restore loads the saved account, falling back to a fresh one funded with the
// configured initial balance.
func restore(store *database.Store, cfg *config.Config) (execution.EngineState, execution.Config, error) {
	snap, err := store.LoadSnapshot()
	switch {
	case errors.Is(err, database.ErrNoSnapshot):
		return execution.EngineState{
			Account: execution.NewAccount(cfg.Trading.InitialBalance, time.Now()),
		}, cfg.Engine(), nil
	case err != nil:
		return execution.EngineState{}, execution.Config{}, err
	}
	return snap.State(), snap.Config, nil
}
