package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"kanakku/internal/amqp"
	"kanakku/internal/backup"
	"kanakku/internal/config"
	apphttp "kanakku/internal/http"
	"kanakku/internal/identity"
	"kanakku/internal/ledger"
	applog "kanakku/internal/log"
	"kanakku/internal/storage"
	"kanakku/internal/storage/memory"
)

// dataStore is everything the services need from a backend. Both the SQLite
// repository and the in-memory store satisfy it.
type dataStore interface {
	ledger.IncomeStore
	ledger.ExpenseStore
	ledger.BudgetStore
	identity.Store
	backup.Store
	apphttp.SettingsStore
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var store dataStore
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		store = repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		logger.Info("Initialized memory backend")
	}

	// The delivery queue is optional: without it backups and exports stay
	// local only.
	var deliverer backup.Deliverer
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, backup delivery disabled", "error", err)
	} else {
		defer amqpClient.Close()
		deliverer = amqpClient
	}

	session := identity.NewSession(store, identity.PlainChecker{})
	incomes := ledger.NewIncomeService(store)
	expenses := ledger.NewExpenseService(store)
	budgets := ledger.NewBudgetService(store)
	backups := backup.NewManager(store, session, deliverer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up date rollovers missed while the process was down.
	if changed, err := incomes.Reconcile(ctx); err != nil {
		logger.Error("Startup reconciliation failed", "error", err)
	} else if changed > 0 {
		logger.Info("Startup reconciliation complete", "changed", changed)
	}

	scheduler := cron.New()
	schedLog := logger.WithComponent(applog.ComponentScheduler)
	if _, err := scheduler.AddFunc(cfg.ReconcileSchedule, func() {
		if changed, err := incomes.Reconcile(context.Background()); err != nil {
			schedLog.Error("Scheduled reconciliation failed", "error", err)
		} else if changed > 0 {
			schedLog.Info("Scheduled reconciliation complete", "changed", changed)
		}
	}); err != nil {
		logger.Error("Failed to schedule reconciliation", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc(cfg.BackupSchedule, func() {
		entry, err := backups.Backup(context.Background(), "")
		if err != nil {
			// Expected when no user has onboarded yet.
			schedLog.Warn("Scheduled backup skipped", "error", err)
			return
		}
		schedLog.Info("Scheduled backup complete", "backup_id", entry.ID, "size", entry.Size)
	}); err != nil {
		logger.Error("Failed to schedule backups", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Incomes:  incomes,
		Expenses: expenses,
		Budgets:  budgets,
		Session:  session,
		Backups:  backups,
		Settings: store,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting kanakku server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
