// Package feed delivers newly committed ledger transactions, in commit
// order, to the cache consumer. Two sources exist: a poller that tails
// the ledger table by transaction id, and a Kafka subscription.
package feed

import (
	"context"

	"github.com/example/transaction-history/internal/ledger"
)

// Buffer is the channel capacity between a feed source and its
// consumer. A full buffer blocks the source rather than dropping:
// ordering is load-bearing and memory stays bounded.
const Buffer = 256

// Feed is a live, ordered subscription of committed transactions.
type Feed interface {
	// Run produces transactions until ctx is cancelled, then closes the
	// channel returned by Transactions.
	Run(ctx context.Context)

	// Transactions is the delivery channel, in commit order.
	Transactions() <-chan ledger.Transaction

	// Healthy reports whether the feed task is running. Wired to the
	// liveness probe: a dead feed means a stale cache.
	Healthy() bool
}
