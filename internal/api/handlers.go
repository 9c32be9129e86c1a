package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/transaction-history/internal/auth"
	"github.com/example/transaction-history/internal/history"
	"github.com/example/transaction-history/internal/ledger"
	"github.com/example/transaction-history/internal/security"
	"github.com/example/transaction-history/internal/statement"
)

const dateFormat = "2006-01-02"

func handleTransactions(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "accountId")
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || claims.AccountID != accountID {
			deps.Logger.Error("failed to retrieve account transactions: not authorized",
				"accountId", accountID)
			security.WriteJSONError(w, r, http.StatusUnauthorized, "not_authorized")
			return
		}

		txns, err := deps.History.Get(r.Context(), accountID)
		if err != nil {
			var loadErr *history.LoadError
			if errors.As(err, &loadErr) {
				deps.Logger.Error("cache error", "accountId", accountID, "error", err)
				security.WriteJSONError(w, r, http.StatusInternalServerError, "cache_error")
				return
			}
			security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}

		if txns == nil {
			txns = []ledger.Transaction{}
		}
		writeJSON(w, r, http.StatusOK, txns)
	}
}

func handleStatement(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "accountId")
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || claims.AccountID != accountID {
			deps.Logger.Error("failed to generate statement: not authorized",
				"accountId", accountID)
			security.WriteJSONError(w, r, http.StatusUnauthorized, "not_authorized")
			return
		}

		start, err := time.Parse(dateFormat, r.URL.Query().Get("startDate"))
		if err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_date_range")
			return
		}
		end, err := time.Parse(dateFormat, r.URL.Query().Get("endDate"))
		if err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_date_range")
			return
		}

		stmt, err := deps.Statements.Generate(r.Context(), accountID, claims.Name, start, end)
		if err != nil {
			var mismatch *statement.BalanceMismatchError
			switch {
			case errors.Is(err, statement.ErrInvalidRange):
				security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_date_range")
			case errors.As(err, &mismatch):
				deps.Logger.Error("failed to generate statement: balance mismatch",
					"accountId", accountID,
					"computed", mismatch.Computed,
					"reported", mismatch.Reported,
					"policy", deps.Statements.Policy(),
				)
				security.WriteJSONError(w, r, http.StatusInternalServerError, "balance_mismatch")
			case errors.Is(err, statement.ErrOverflow):
				deps.Logger.Error("failed to generate statement: amount overflow", "accountId", accountID)
				security.WriteJSONError(w, r, http.StatusInternalServerError, "amount_overflow")
			default:
				deps.Logger.Error("failed to generate statement", "accountId", accountID, "error", err)
				security.WriteJSONError(w, r, http.StatusInternalServerError, "statement_failed")
			}
			return
		}

		writeJSON(w, r, http.StatusOK, stmt)
	}
}
