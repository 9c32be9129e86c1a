package feed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/example/transaction-history/internal/ledger"
)

// Store is the slice of the ledger store the poller tails.
type Store interface {
	LatestTransactionID(ctx context.Context) (int64, error)
	TransactionsAfter(ctx context.Context, afterID int64) ([]ledger.Transaction, error)
}

// Poller tails the ledger by transaction id. On startup it records the
// current latest id and only emits transactions committed after that;
// history is the cache loader's job, the feed carries new commits only.
type Poller struct {
	store    Store
	interval time.Duration
	log      *slog.Logger

	out    chan ledger.Transaction
	lastID int64
	alive  atomic.Bool
}

// NewPoller creates a poller that checks for new commits every interval.
func NewPoller(store Store, interval time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		store:    store,
		interval: interval,
		log:      log,
		out:      make(chan ledger.Transaction, Buffer),
	}
}

func (p *Poller) Transactions() <-chan ledger.Transaction { return p.out }

func (p *Poller) Healthy() bool { return p.alive.Load() }

// Run polls until ctx is cancelled. Query failures are logged and
// retried on the next tick; the poller only emits a transaction once,
// and always in id order.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.out)

	if !p.seedLatestID(ctx) {
		return
	}

	p.alive.Store(true)
	defer p.alive.Store(false)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			txns, err := p.store.TransactionsAfter(ctx, p.lastID)
			if err != nil {
				p.log.Warn("ledger poll failed", "afterId", p.lastID, "error", err)
				continue
			}
			for _, tx := range txns {
				select {
				case p.out <- tx:
					p.lastID = tx.ID
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// seedLatestID retries until it learns where the ledger currently ends.
// Starting from an unknown position would replay the whole ledger into
// the cache.
func (p *Poller) seedLatestID(ctx context.Context) bool {
	for {
		id, err := p.store.LatestTransactionID(ctx)
		if err == nil {
			p.lastID = id
			p.log.Info("ledger feed starting", "latestTransactionId", id)
			return true
		}
		p.log.Warn("failed to read latest transaction id", "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.interval):
		}
	}
}
