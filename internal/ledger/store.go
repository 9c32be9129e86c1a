package ledger

import (
	"context"
	"time"
)

// Store is the read-only query surface over the append-only ledger.
// The ledger itself is owned by the write-side services; everything in
// this process treats it as an external source of truth.
type Store interface {
	// MostRecentTransactions returns up to limit transactions touching
	// the account, newest first.
	MostRecentTransactions(ctx context.Context, accountID, routingNum string, limit int) ([]Transaction, error)

	// TransactionsInRange returns the account's transactions with
	// start <= timestamp < end, ascending by timestamp.
	TransactionsInRange(ctx context.Context, accountID, routingNum string, start, end time.Time) ([]Transaction, error)

	// BalanceAsOf returns the account balance in minor units as of t:
	// the sum of credits minus the sum of debits committed strictly
	// before t.
	BalanceAsOf(ctx context.Context, accountID, routingNum string, t time.Time) (int64, error)

	// LatestTransactionID returns the id of the most recently committed
	// transaction, or 0 if the ledger is empty.
	LatestTransactionID(ctx context.Context) (int64, error)

	// TransactionsAfter returns every transaction with id > afterID,
	// ascending by id. Used to tail the ledger for new commits.
	TransactionsAfter(ctx context.Context, afterID int64) ([]Transaction, error)
}
