// Package http exposes the JSON API: account registration and login,
// expense/income/budget records and the monthly budget summary.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pfm/internal/auth"
	"pfm/internal/cache"
	"pfm/internal/core"
	"pfm/internal/ledger"
	"pfm/internal/log"
)

// Store is the persistence surface the API needs beyond what the account
// guard and ledger already own.
type Store interface {
	FindAccountByUsername(ctx context.Context, username string) (*core.Account, error)

	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	FindExpense(ctx context.Context, id, userID int64) (*core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id, userID int64) error
	ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error)

	CreateIncome(ctx context.Context, i core.Income) (int64, error)
	FindIncome(ctx context.Context, id, userID int64) (*core.Income, error)
	UpdateIncome(ctx context.Context, i core.Income) error
	DeleteIncome(ctx context.Context, id, userID int64) error
	ListIncomesByUser(ctx context.Context, userID int64) ([]core.Income, error)

	CreateBudget(ctx context.Context, b core.Budget) (int64, error)
	FindBudget(ctx context.Context, id, userID int64) (*core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id, userID int64) error
	FindBudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error)

	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	FindSessionAccount(ctx context.Context, token string, now time.Time) (*core.Account, error)
	DeleteSession(ctx context.Context, token string) error
}

// AlertPublisher pushes over-budget alerts to out-of-process consumers.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, userID int64, s core.BudgetSummary, period core.Period) error
}

// Config carries the server knobs that are not collaborators.
type Config struct {
	Addr       string
	SessionTTL time.Duration
	Now        func() time.Time
}

type Server struct {
	http.Server

	store   Store
	guard   *auth.Guard
	ledger  *ledger.Ledger
	alerts  AlertPublisher
	logger  *log.Logger
	httpLog *log.HTTPLogger

	rateLimiter *rateLimiter

	// Cached budget summaries, keyed per user and month, invalidated on
	// every write that can move a number.
	summaryCache *cache.LRUCache[[]core.BudgetSummary]
	cacheManager *cache.Manager

	sessionTTL time.Duration
	now        func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. alerts may be nil; over-budget events are then only logged.
func NewServer(cfg Config, store Store, guard *auth.Guard, ldg *ledger.Ledger, alerts AlertPublisher, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	s := &Server{
		Server: http.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
		store:        store,
		guard:        guard,
		ledger:       ldg,
		alerts:       alerts,
		logger:       logger.WithComponent(log.ComponentHTTP),
		httpLog:      log.NewHTTPLogger(logger),
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[[]core.BudgetSummary](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
		sessionTTL:   sessionTTL,
		now:          now,
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.withMiddleware(s.handleLogout))

	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.handleCategories))

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.requireSession(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.requireSession(s.handleCreateExpense)))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withMiddleware(s.requireSession(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withMiddleware(s.requireSession(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/incomes", s.withMiddleware(s.requireSession(s.handleListIncomes)))
	mux.HandleFunc("POST /api/incomes", s.withMiddleware(s.requireSession(s.handleCreateIncome)))
	mux.HandleFunc("PUT /api/incomes/{id}", s.withMiddleware(s.requireSession(s.handleUpdateIncome)))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.withMiddleware(s.requireSession(s.handleDeleteIncome)))

	mux.HandleFunc("GET /api/budgets", s.withMiddleware(s.requireSession(s.handleListBudgets)))
	mux.HandleFunc("POST /api/budgets", s.withMiddleware(s.requireSession(s.handleCreateBudget)))
	mux.HandleFunc("PUT /api/budgets/{id}", s.withMiddleware(s.requireSession(s.handleUpdateBudget)))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.withMiddleware(s.requireSession(s.handleDeleteBudget)))

	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.requireSession(s.handleSummary)))
	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.requireSession(s.handleDashboard)))

	return s
}

// withMiddleware adds security headers, rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ip := clientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), log.LoggerContextKey, s.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		s.httpLog.LogStart(ctx, r, ip)

		// Writes are rate limited per client IP.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, ip, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
