package credit

import (
	"context"
	"sync"
)

// MemLedger implementasi in-memory utk test engine.
type MemLedger struct {
	mu       sync.Mutex
	accounts map[string]*Account     // key tenant/customer
	txs      map[string][]Transaction // key tenant/customer
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		accounts: map[string]*Account{},
		txs:      map[string][]Transaction{},
	}
}

func acctKey(tenantID, customerID string) string { return tenantID + "/" + customerID }

func (l *MemLedger) PutAccount(tenantID string, a Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := a
	l.accounts[acctKey(tenantID, a.CustomerID)] = &cp
}

func (l *MemLedger) Transactions(tenantID, customerID string) []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction(nil), l.txs[acctKey(tenantID, customerID)]...)
}

func (l *MemLedger) Post(ctx context.Context, tenantID, customerID string, t Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := acctKey(tenantID, customerID)
	a, ok := l.accounts[k]
	if !ok {
		return ErrCustomerNotFound
	}
	if t.Reference != "" {
		for _, prev := range l.txs[k] {
			if prev.Type == t.Type && prev.Reference == t.Reference {
				return nil // idempotent per (type, reference)
			}
		}
	}
	l.txs[k] = append(l.txs[k], t)
	var used int64
	for _, tx := range l.txs[k] {
		used += signedAmount(tx)
	}
	a.CreditUsedCents = used
	return nil
}

func (l *MemLedger) Headroom(ctx context.Context, tenantID, customerID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[acctKey(tenantID, customerID)]
	if !ok {
		return 0, ErrCustomerNotFound
	}
	return a.CreditLimitCents - a.CreditUsedCents, nil
}
