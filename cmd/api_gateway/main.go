package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/balance-ledger/internal/api_gateway"
	"github.com/balance-ledger/internal/api_gateway/service"
	"github.com/balance-ledger/internal/config"
	"github.com/balance-ledger/internal/data/memory"
	"github.com/balance-ledger/internal/data/mongo"
	"github.com/balance-ledger/internal/data/postgres"
	"github.com/balance-ledger/internal/domain/ledger"
	"github.com/balance-ledger/internal/domain/transaction"
	"github.com/balance-ledger/internal/logger"
	"github.com/balance-ledger/internal/platform/lock"
	"github.com/balance-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting API Gateway",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"store_driver", cfg.Store.Driver,
		"lock_driver", cfg.Lock.Driver,
	)

	// Ledger store
	var (
		store      ledger.Store
		postgresDB *persistence.PostgresDB
	)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		postgresDB, err = persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		store = postgres.NewLedgerStore(log, postgresDB.Pool())
	default:
		log.Warn("Using in-memory ledger store, balances are lost on restart")
		store = memory.NewStore(log)
	}

	// Account locks
	lockOpts := lock.Options{
		Expiry:      cfg.Lock.Expiry,
		Tries:       cfg.Lock.Tries,
		RetryDelay:  cfg.Lock.RetryDelay,
		DriftFactor: cfg.Lock.DriftFactor,
	}
	var (
		locks       lock.Manager
		redisClient *persistence.RedisClient
	)
	switch cfg.Lock.Driver {
	case config.DriverRedis:
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		locks = lock.NewRedisManager(log, redisClient.Client(), lockOpts)
	default:
		log.Warn("Using in-process account locks, run a single replica only")
		locks = lock.NewMemoryManager(log, lockOpts)
	}

	// History read model
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())
	if err := historyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure history indexes", "error", err)
		os.Exit(1)
	}

	accountService := service.NewAccountService(log, store)
	transactionService := service.NewTransactionService(log, store, historyRepo, transaction.NewID)

	server := api_gateway.NewServer(log, cfg, accountService, transactionService, locks)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	shutdown(log, cfg, server, postgresDB, redisClient, mongoDB)
	cancelAppCtx()

	if serverErr != nil {
		log.Error("API Gateway stopped with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("API Gateway shutdown completed")
}

// shutdown stops the HTTP server first so in-flight operations finish and release
// their locks before the stores they write to are closed
func shutdown(
	log *slog.Logger,
	cfg *config.Config,
	server *api_gateway.Server,
	postgresDB *persistence.PostgresDB,
	redisClient *persistence.RedisClient,
	mongoDB *persistence.MongoDB,
) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}
	if postgresDB != nil {
		postgresDB.Close()
	}
	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}
}
