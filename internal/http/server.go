// Package http exposes the ledger, identity and backup operations as a JSON
// API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kanakku/internal/backup"
	"kanakku/internal/identity"
	"kanakku/internal/ledger"
	applog "kanakku/internal/log"
)

// SettingsStore persists UI preferences outside the encrypted profile blob.
type SettingsStore interface {
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error
}

type Server struct {
	http.Server

	incomes  *ledger.IncomeService
	expenses *ledger.ExpenseService
	budgets  *ledger.BudgetService
	session  *identity.Session
	backups  *backup.Manager
	settings SettingsStore

	logger      *applog.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// Deps bundles the collaborators the API serves.
type Deps struct {
	Incomes  *ledger.IncomeService
	Expenses *ledger.ExpenseService
	Budgets  *ledger.BudgetService
	Session  *identity.Session
	Backups  *backup.Manager
	Settings SettingsStore
	Logger   *applog.Logger
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		incomes:     deps.Incomes,
		expenses:    deps.Expenses,
		budgets:     deps.Budgets,
		session:     deps.Session,
		backups:     deps.Backups,
		settings:    deps.Settings,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(),
	}
	s.Server = http.Server{
		Addr:         addr,
		Handler:      applog.Middleware(logger)(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Identity
	mux.HandleFunc("/api/auth/login", s.guard(s.handleLogin))
	mux.HandleFunc("/api/auth/signup", s.guard(s.handleSignup))
	mux.HandleFunc("/api/auth/onboard", s.guard(s.handleOnboard))
	mux.HandleFunc("/api/auth/logout", s.guard(s.handleLogout))
	mux.HandleFunc("/api/auth/exists", s.guard(s.handleCheckUser))
	mux.HandleFunc("/api/auth/reset-password", s.guard(s.handleResetPassword))
	mux.HandleFunc("/api/profile", s.guard(s.handleProfile))

	// Ledger
	mux.HandleFunc("/api/incomes", s.guard(s.handleIncomes))
	mux.HandleFunc("/api/incomes/buckets", s.guard(s.handleIncomeBuckets))
	mux.HandleFunc("/api/incomes/reconcile", s.guard(s.handleReconcile))
	mux.HandleFunc("/api/incomes/restore", s.guard(s.handleRestoreIncome))
	mux.HandleFunc("/api/incomes/{id}", s.guard(s.handleIncomeByID))
	mux.HandleFunc("/api/incomes/{id}/received", s.guard(s.handleMarkReceived))
	mux.HandleFunc("/api/expenses", s.guard(s.handleExpenses))
	mux.HandleFunc("/api/expenses/restore", s.guard(s.handleRestoreExpense))
	mux.HandleFunc("/api/expenses/{id}", s.guard(s.handleExpenseByID))
	mux.HandleFunc("/api/budgets", s.guard(s.handleBudgets))

	// Backups
	mux.HandleFunc("/api/backups", s.guard(s.handleBackups))
	mux.HandleFunc("/api/backups/{id}", s.guard(s.handleBackupByID))
	mux.HandleFunc("/api/backups/import", s.guard(s.handleImport))
	mux.HandleFunc("/api/backups/restore-user", s.guard(s.handleRestoreUser))
	mux.HandleFunc("/api/export", s.guard(s.handleExport))

	// Settings
	mux.HandleFunc("/api/settings/theme", s.guard(s.handleTheme))

	return s
}

// guard applies rate limiting and security headers to an API handler.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")

		next(w, r)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
