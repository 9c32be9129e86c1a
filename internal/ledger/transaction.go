package ledger

import "time"

// Transaction is a single committed ledger entry: a directed transfer of
// Amount minor-currency units (cents) from one account to another. The
// ledger only stores positive amounts; direction is carried by the
// from/to fields, and the routing numbers identify which ledger instance
// owns each side.
type Transaction struct {
	ID          int64     `json:"transactionId"`
	FromAccount string    `json:"fromAccountNum"`
	FromRouting string    `json:"fromRoutingNum"`
	ToAccount   string    `json:"toAccountNum"`
	ToRouting   string    `json:"toRoutingNum"`
	Amount      int64     `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsCredit reports whether t is an inflow for accountID on the ledger
// identified by localRouting. Routing must match: an external transfer
// that happens to mention the same account number belongs to another
// bank's ledger and is not attributable here.
func (t Transaction) IsCredit(accountID, localRouting string) bool {
	return t.ToAccount == accountID && t.ToRouting == localRouting
}

// IsDebit reports whether t is an outflow for accountID on the ledger
// identified by localRouting.
func (t Transaction) IsDebit(accountID, localRouting string) bool {
	return t.FromAccount == accountID && t.FromRouting == localRouting
}
