package history

import "github.com/example/transaction-history/internal/ledger"

// boundedDeque is a fixed-capacity ring buffer of transactions kept
// newest first. Pushing onto a full deque silently drops the oldest
// element, which is exactly the eviction the cache wants.
type boundedDeque struct {
	buf  []ledger.Transaction
	head int // index of the newest element
	n    int
}

func newBoundedDeque(capacity int) *boundedDeque {
	return &boundedDeque{buf: make([]ledger.Transaction, capacity)}
}

// pushFront inserts tx as the newest element, evicting the oldest if
// the deque is at capacity. O(1).
func (d *boundedDeque) pushFront(tx ledger.Transaction) {
	d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
	d.buf[d.head] = tx
	if d.n < len(d.buf) {
		d.n++
	}
}

func (d *boundedDeque) len() int {
	return d.n
}

// snapshot copies the contents out, newest first.
func (d *boundedDeque) snapshot() []ledger.Transaction {
	out := make([]ledger.Transaction, d.n)
	for i := 0; i < d.n; i++ {
		out[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	return out
}

// fillNewestFirst seeds the deque from a newest-first slice, keeping at
// most capacity elements (the newest ones win).
func (d *boundedDeque) fillNewestFirst(txns []ledger.Transaction) {
	if len(txns) > len(d.buf) {
		txns = txns[:len(d.buf)]
	}
	for i := len(txns) - 1; i >= 0; i-- {
		d.pushFront(txns[i])
	}
}
