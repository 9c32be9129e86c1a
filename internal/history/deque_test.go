package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/transaction-history/internal/ledger"
)

func dtx(id int64) ledger.Transaction {
	return ledger.Transaction{ID: id}
}

func TestDequePushFrontEvictsAtCapacity(t *testing.T) {
	d := newBoundedDeque(3)
	for id := int64(1); id <= 5; id++ {
		d.pushFront(dtx(id))
		assert.LessOrEqual(t, d.len(), 3)
	}
	assert.Equal(t, []int64{5, 4, 3}, ids(d.snapshot()))
}

func TestDequeFillNewestFirst(t *testing.T) {
	d := newBoundedDeque(3)
	d.fillNewestFirst([]ledger.Transaction{dtx(9), dtx(8), dtx(7), dtx(6)})
	assert.Equal(t, []int64{9, 8, 7}, ids(d.snapshot()))

	d.pushFront(dtx(10))
	assert.Equal(t, []int64{10, 9, 8}, ids(d.snapshot()))
}

func TestDequeSnapshotIsACopy(t *testing.T) {
	d := newBoundedDeque(2)
	d.pushFront(dtx(1))
	snap := d.snapshot()

	d.pushFront(dtx(2))
	assert.Equal(t, []int64{1}, ids(snap))
	assert.Equal(t, []int64{2, 1}, ids(d.snapshot()))
}
