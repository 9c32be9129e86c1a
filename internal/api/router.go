// Package api is the REST surface over the transaction cache and the
// statement engine.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/transaction-history/internal/auth"
	"github.com/example/transaction-history/internal/ledger"
	"github.com/example/transaction-history/internal/security"
	"github.com/example/transaction-history/internal/statement"
)

// Dependencies wires the router to the core components.
type Dependencies struct {
	Logger   *slog.Logger
	Verifier *auth.Verifier

	History interface {
		Get(ctx context.Context, accountID string) ([]ledger.Transaction, error)
	}
	Statements interface {
		Generate(ctx context.Context, accountID, userName string, start, end time.Time) (*statement.Statement, error)
		Policy() statement.Policy
	}

	// FeedHealthy reports whether the feed task is still running; a
	// dead feed means the cache silently goes stale, so the liveness
	// probe fails on it.
	FeedHealthy func() bool

	// CacheStats, when set, is sampled on each liveness probe.
	CacheStats func() (hits, misses uint64)

	Version      string
	RateLimiter  *security.FixedWindowLimiter
	ExtraLatency time.Duration
}

// NewRouter builds the service handler.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	onAuthError := func(w http.ResponseWriter, r *http.Request, status int, code string) {
		security.WriteJSONError(w, r, status, code)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	if deps.RateLimiter != nil {
		r.Use(security.RateLimitMiddleware(deps.RateLimiter))
	}

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(deps.Version))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/healthy", func(w http.ResponseWriter, r *http.Request) {
		if deps.CacheStats != nil {
			hits, misses := deps.CacheStats()
			deps.Logger.Debug("cache stats", "hits", hits, "misses", misses)
		}
		if deps.FeedHealthy != nil && !deps.FeedHealthy() {
			deps.Logger.Error("ledger feed not healthy")
			security.WriteJSONError(w, r, http.StatusInternalServerError, "feed_unhealthy")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(deps.Verifier, onAuthError))
		if deps.ExtraLatency > 0 {
			r.Use(extraLatency(deps.ExtraLatency))
		}

		r.Get("/transactions/{accountId}", handleTransactions(deps))
		r.Get("/statement/{accountId}", handleStatement(deps))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	return r
}
