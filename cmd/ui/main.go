package main

import (
	"btc-paper-trader-go/internal/config"
	"btc-paper-trader-go/internal/database"
	"btc-paper-trader-go/internal/logger"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "ui")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database the trader writes to
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewStore(db, cfg.Trading.Symbol, log)

	apiHandler := NewAPIHandler(log, store)

	addr := fmt.Sprintf(":%d", cfg.Server.UIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           apiHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("Starting web server", zap.String("address", addr))

	if err := server.ListenAndServe(); err != nil {
		log.Fatal("Web server failed", zap.Error(err))
	}
}
