package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/transaction-history/internal/ledger"
)

type fakeStore struct {
	mu        sync.Mutex
	latest    int64
	latestErr error
	committed []ledger.Transaction
	pollErr   error
}

func (f *fakeStore) LatestTransactionID(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return 0, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeStore) TransactionsAfter(ctx context.Context, afterID int64) ([]ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	var out []ledger.Transaction
	for _, tx := range f.committed {
		if tx.ID > afterID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) commit(txns ...ledger.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, txns...)
}

func ptx(id int64) ledger.Transaction {
	return ledger.Transaction{ID: id, Amount: 100, Timestamp: time.Unix(1700000000+id, 0)}
}

func collect(t *testing.T, ch <-chan ledger.Transaction, n int) []int64 {
	t.Helper()
	var out []int64
	for len(out) < n {
		select {
		case tx := <-ch:
			out = append(out, tx.ID)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for feed, got %v", out)
		}
	}
	return out
}

func TestPollerEmitsOnlyNewCommitsInOrder(t *testing.T) {
	store := &fakeStore{latest: 2, committed: []ledger.Transaction{ptx(1), ptx(2)}}
	p := NewPoller(store, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	store.commit(ptx(3), ptx(4), ptx(5))

	assert.Equal(t, []int64{3, 4, 5}, collect(t, p.Transactions(), 3))

	cancel()
	<-done
	assert.False(t, p.Healthy())
}

func TestPollerDoesNotReplayAfterDelivery(t *testing.T) {
	store := &fakeStore{}
	p := NewPoller(store, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	store.commit(ptx(1))
	assert.Equal(t, []int64{1}, collect(t, p.Transactions(), 1))

	store.commit(ptx(2))
	assert.Equal(t, []int64{2}, collect(t, p.Transactions(), 1))
}

func TestPollerRecoversFromPollErrors(t *testing.T) {
	store := &fakeStore{pollErr: errors.New("connection reset")}
	p := NewPoller(store, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// Let a few failing polls happen, then heal the store.
	time.Sleep(25 * time.Millisecond)
	store.mu.Lock()
	store.pollErr = nil
	store.mu.Unlock()
	store.commit(ptx(1))

	assert.Equal(t, []int64{1}, collect(t, p.Transactions(), 1))
	assert.True(t, p.Healthy())
}

func TestPollerRetriesInitialLatestID(t *testing.T) {
	store := &fakeStore{latestErr: errors.New("not ready"), latest: 7}
	p := NewPoller(store, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	time.Sleep(15 * time.Millisecond)
	store.mu.Lock()
	store.latestErr = nil
	store.mu.Unlock()

	// Only commits after the seeded id may flow.
	store.commit(ptx(7), ptx(8))
	require.Equal(t, []int64{8}, collect(t, p.Transactions(), 1))
}
