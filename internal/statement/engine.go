// Package statement builds historical bank statements from the ledger
// and reconciles the computed running balance against the ledger's own
// balance snapshots.
package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/example/transaction-history/internal/ledger"
)

// Policy selects how a disagreement between the computed and the
// ledger-reported closing balance is handled. The choice is fixed per
// deployment; the engine never mixes behaviors.
type Policy string

const (
	// PolicyStrict refuses to produce a statement when the balances
	// disagree.
	PolicyStrict Policy = "strict"
	// PolicyTrustComputed logs the discrepancy and uses the balance
	// derived from the transaction list.
	PolicyTrustComputed Policy = "trust-computed"
	// PolicyTrustLedger always uses the ledger-reported balance.
	PolicyTrustLedger Policy = "trust-ledger"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyStrict, PolicyTrustComputed, PolicyTrustLedger:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown reconciliation policy %q", s)
}

var (
	// ErrInvalidRange means the caller supplied missing dates or a
	// start date after the end date.
	ErrInvalidRange = errors.New("start date must not be after end date")

	// ErrOverflow means an aggregate exceeded the representable amount
	// range. This is a data-integrity alarm, not a transient failure.
	ErrOverflow = errors.New("aggregate amount overflows the representable range")
)

// BalanceMismatchError reports a strict-policy reconciliation failure.
type BalanceMismatchError struct {
	AccountID string
	Computed  int64
	Reported  int64
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("balance mismatch for account %s: computed %d, ledger reports %d",
		e.AccountID, e.Computed, e.Reported)
}

// Statement is the result of one Generate call. It is never cached.
type Statement struct {
	AccountID      string               `json:"accountId"`
	UserName       string               `json:"userName"`
	StartDate      time.Time            `json:"startDate"`
	EndDate        time.Time            `json:"endDate"`
	OpeningBalance int64                `json:"openingBalance"`
	ClosingBalance int64                `json:"closingBalance"`
	Transactions   []ledger.Transaction `json:"transactions"`
	TotalCredits   int64                `json:"totalCredits"`
	TotalDebits    int64                `json:"totalDebits"`
}

// Store is the slice of the ledger the engine queries.
type Store interface {
	TransactionsInRange(ctx context.Context, accountID, routingNum string, start, end time.Time) ([]ledger.Transaction, error)
	BalanceAsOf(ctx context.Context, accountID, routingNum string, t time.Time) (int64, error)
}

// Engine generates statements. It is stateless; calls are independent
// and safe to run concurrently.
type Engine struct {
	store        Store
	localRouting string
	policy       Policy
	log          *slog.Logger
}

// NewEngine creates an engine bound to one reconciliation policy.
func NewEngine(store Store, localRouting string, policy Policy, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, localRouting: localRouting, policy: policy, log: log}
}

// Policy reports the active reconciliation policy.
func (e *Engine) Policy() Policy { return e.policy }

// Generate builds the statement for the day-granular period covering
// start through the end of the end date, inclusive. The opening balance
// is the ledger balance just before start; every transaction in the
// period is attributed as a credit or debit (or excluded when neither
// side is local); the closing balance is reconciled per the engine's
// policy.
func (e *Engine) Generate(ctx context.Context, accountID, userName string, start, end time.Time) (*Statement, error) {
	if start.IsZero() || end.IsZero() || start.After(end) {
		return nil, ErrInvalidRange
	}

	// The period is inclusive of the end date, so the exclusive upper
	// bound is the start of the following day. Using the same bound for
	// the range query and the closing balance keeps the reconciliation
	// identity exact.
	endExclusive := end.AddDate(0, 0, 1)

	opening, err := e.store.BalanceAsOf(ctx, accountID, e.localRouting, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query opening balance: %w", err)
	}

	txns, err := e.store.TransactionsInRange(ctx, accountID, e.localRouting, start, endExclusive)
	if err != nil {
		return nil, fmt.Errorf("failed to query statement transactions: %w", err)
	}

	var credits, debits int64
	for _, tx := range txns {
		switch {
		case tx.IsCredit(accountID, e.localRouting):
			if credits, err = addChecked(credits, tx.Amount); err != nil {
				return nil, err
			}
		case tx.IsDebit(accountID, e.localRouting):
			if debits, err = addChecked(debits, tx.Amount); err != nil {
				return nil, err
			}
		default:
			// Neither side is local to this account: not attributable,
			// contributes nothing to the totals.
		}
	}

	reported, err := e.store.BalanceAsOf(ctx, accountID, e.localRouting, endExclusive)
	if err != nil {
		return nil, fmt.Errorf("failed to query closing balance: %w", err)
	}

	computed, err := addChecked(opening, credits)
	if err != nil {
		return nil, err
	}
	computed, err = subChecked(computed, debits)
	if err != nil {
		return nil, err
	}

	closing := reported
	switch e.policy {
	case PolicyStrict:
		if computed != reported {
			return nil, &BalanceMismatchError{AccountID: accountID, Computed: computed, Reported: reported}
		}
	case PolicyTrustComputed:
		if computed != reported {
			e.log.Warn("statement balance mismatch",
				"accountId", accountID,
				"computed", computed,
				"reported", reported,
				"policy", e.policy,
			)
		}
		closing = computed
	case PolicyTrustLedger:
		// Reported balance stands; the computed value is informational.
	}

	return &Statement{
		AccountID:      accountID,
		UserName:       userName,
		StartDate:      start,
		EndDate:        end,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Transactions:   txns,
		TotalCredits:   credits,
		TotalDebits:    debits,
	}, nil
}

func addChecked(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

func subChecked(a, b int64) (int64, error) {
	if b == math.MinInt64 {
		return 0, ErrOverflow
	}
	return addChecked(a, -b)
}
