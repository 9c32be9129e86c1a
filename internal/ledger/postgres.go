package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 5 * time.Second

// PostgresStore implements Store against the shared TRANSACTIONS table.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgresStore creates a read-only ledger store over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

func (s *PostgresStore) MostRecentTransactions(ctx context.Context, accountID, routingNum string, limit int) ([]Transaction, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, `
		SELECT transaction_id, from_acct, from_route, to_acct, to_route, amount, timestamp
		FROM transactions
		WHERE (from_acct = $1 AND from_route = $2)
		   OR (to_acct = $1 AND to_route = $2)
		ORDER BY timestamp DESC
		LIMIT $3
	`, accountID, routingNum, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *PostgresStore) TransactionsInRange(ctx context.Context, accountID, routingNum string, start, end time.Time) ([]Transaction, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, `
		SELECT transaction_id, from_acct, from_route, to_acct, to_route, amount, timestamp
		FROM transactions
		WHERE ((from_acct = $1 AND from_route = $2)
		    OR (to_acct = $1 AND to_route = $2))
		  AND timestamp >= $3 AND timestamp < $4
		ORDER BY timestamp ASC
	`, accountID, routingNum, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions in range: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *PostgresStore) BalanceAsOf(ctx context.Context, accountID, routingNum string, t time.Time) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int64
	err := s.Pool.QueryRow(queryCtx, `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM transactions
			 WHERE to_acct = $1 AND to_route = $2 AND timestamp < $3)
			-
			(SELECT COALESCE(SUM(amount), 0) FROM transactions
			 WHERE from_acct = $1 AND from_route = $2 AND timestamp < $3)
	`, accountID, routingNum, t).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}

	return balance, nil
}

func (s *PostgresStore) LatestTransactionID(ctx context.Context) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var id int64
	err := s.Pool.QueryRow(queryCtx,
		`SELECT COALESCE(MAX(transaction_id), 0) FROM transactions`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to query latest transaction id: %w", err)
	}

	return id, nil
}

func (s *PostgresStore) TransactionsAfter(ctx context.Context, afterID int64) ([]Transaction, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.Pool.Query(queryCtx, `
		SELECT transaction_id, from_acct, from_route, to_acct, to_route, amount, timestamp
		FROM transactions
		WHERE transaction_id > $1
		ORDER BY transaction_id ASC
	`, afterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions after %d: %w", afterID, err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	var txns []Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.FromAccount, &tx.FromRouting, &tx.ToAccount, &tx.ToRouting, &tx.Amount, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return txns, nil
}
