package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/example/transaction-history/internal/ledger"
)

// Loader is the slice of the ledger store the cache needs for
// population.
type Loader interface {
	MostRecentTransactions(ctx context.Context, accountID, routingNum string, limit int) ([]ledger.Transaction, error)
}

// LoadError wraps a ledger query failure during cache population. The
// account stays uncached, so the next Get retries the load.
type LoadError struct {
	AccountID string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load history for account %s: %v", e.AccountID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Cache holds a bounded newest-first transaction history per account.
// An account enters the cache the first time it is read (one ledger
// query, shared by all concurrent readers of that account) and is kept
// current afterwards by the feed consumer. Accounts that were never
// read are not tracked.
type Cache struct {
	loader       Loader
	localRouting string
	limit        int
	log          *slog.Logger

	mu      sync.RWMutex // guards the entries map, not the entries
	entries map[string]*accountEntry

	loads singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// accountEntry carries its own lock so the feed consumer and readers of
// one account never contend with traffic on other accounts.
type accountEntry struct {
	mu      sync.Mutex
	history *boundedDeque
}

// New creates a cache that keeps up to limit transactions per account.
func New(loader Loader, localRouting string, limit int, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		loader:       loader,
		localRouting: localRouting,
		limit:        limit,
		log:          log,
		entries:      make(map[string]*accountEntry),
	}
}

// Get returns the account's recent transactions, newest first, loading
// them from the ledger on first access. Concurrent first accesses for
// the same account share a single ledger query; if that query fails,
// every waiter gets the same LoadError and the account stays uncached.
func (c *Cache) Get(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	if e := c.lookup(accountID); e != nil {
		c.hits.Add(1)
		return e.snapshot(), nil
	}
	c.misses.Add(1)

	v, err, _ := c.loads.Do(accountID, func() (interface{}, error) {
		// A racing flight may have installed the entry between our
		// lookup and joining the group.
		if e := c.lookup(accountID); e != nil {
			return e, nil
		}

		txns, err := c.loader.MostRecentTransactions(ctx, accountID, c.localRouting, c.limit)
		if err != nil {
			return nil, &LoadError{AccountID: accountID, Err: err}
		}

		e := &accountEntry{history: newBoundedDeque(c.limit)}
		e.history.fillNewestFirst(txns)

		c.mu.Lock()
		c.entries[accountID] = e
		c.mu.Unlock()

		c.log.Debug("loaded transaction history", "accountId", accountID, "count", e.history.len())
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*accountEntry).snapshot(), nil
}

// Apply routes one feed transaction to the cached accounts it touches.
// An internal transfer between two tracked accounts updates both; a
// transaction for an account nobody has read yet is ignored.
func (c *Cache) Apply(tx ledger.Transaction) {
	if tx.FromRouting == c.localRouting {
		c.applyTo(tx.FromAccount, tx)
	}
	if tx.ToRouting == c.localRouting {
		c.applyTo(tx.ToAccount, tx)
	}
}

// Run consumes the feed channel until ctx is cancelled or the channel
// closes, applying each transaction in delivery order. A failed
// application is logged and skipped; the feed must keep advancing for
// the accounts that are fine.
func (c *Cache) Run(ctx context.Context, feed <-chan ledger.Transaction) {
	for {
		select {
		case <-ctx.Done():
			return
		case tx, ok := <-feed:
			if !ok {
				return
			}
			c.safeApply(tx)
		}
	}
}

// Hits and Misses report read counters since startup.
func (c *Cache) Hits() uint64   { return c.hits.Load() }
func (c *Cache) Misses() uint64 { return c.misses.Load() }

func (c *Cache) lookup(accountID string) *accountEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[accountID]
}

func (c *Cache) applyTo(accountID string, tx ledger.Transaction) {
	e := c.lookup(accountID)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.pushFront(tx)
}

func (c *Cache) safeApply(tx ledger.Transaction) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("dropping feed update", "transactionId", tx.ID, "panic", r)
		}
	}()
	c.Apply(tx)
}

func (e *accountEntry) snapshot() []ledger.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.snapshot()
}
