package stock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemLedger implementasi in-memory dengan semantik sama persis dgn PgLedger.
// Dipakai di test engine dan test properti ledger.
type MemLedger struct {
	mu           sync.Mutex
	items        map[string]*Item
	reservations map[string]*Reservation
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		items:        map[string]*Item{},
		reservations: map[string]*Reservation{},
	}
}

// Put seed / overwrite counter stok satu (product, store).
func (l *MemLedger) Put(tenantID string, it Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := it
	l.items[itemKey(tenantID, it.ProductID, it.StoreID)] = &cp
}

func (l *MemLedger) Get(ctx context.Context, tenantID, productID, storeID string) (Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[itemKey(tenantID, productID, storeID)]
	if !ok {
		return Item{}, fmt.Errorf("%w: product=%s store=%s", ErrItemNotFound, productID, storeID)
	}
	return *it, nil
}

func (l *MemLedger) Reserve(ctx context.Context, tenantID, orderID string, ln Line) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rk := resKey(tenantID, orderID, ln.ProductID, ln.StoreID)
	if _, ok := l.reservations[rk]; ok {
		return nil // idempotent
	}
	it, ok := l.items[itemKey(tenantID, ln.ProductID, ln.StoreID)]
	if !ok {
		return fmt.Errorf("%w: product=%s store=%s", ErrItemNotFound, ln.ProductID, ln.StoreID)
	}
	d := applyReserve(it, ln.Qty)
	it.LastUpdated = time.Now()
	l.reservations[rk] = &Reservation{
		OrderID: orderID, ProductID: ln.ProductID, StoreID: ln.StoreID,
		Qty: ln.Qty, AvailableDelta: d, Status: ReservationReserved,
	}
	return nil
}

func (l *MemLedger) Deduct(ctx context.Context, tenantID, orderID string, ln Line) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	it, ok := l.items[itemKey(tenantID, ln.ProductID, ln.StoreID)]
	if !ok {
		return fmt.Errorf("%w: product=%s store=%s", ErrItemNotFound, ln.ProductID, ln.StoreID)
	}
	rk := resKey(tenantID, orderID, ln.ProductID, ln.StoreID)
	res, found := l.reservations[rk]
	if found && res.Status == ReservationConsumed {
		return nil
	}
	if found && res.Status == ReservationReserved {
		applyDeductConsume(it, res, ln.Qty)
		it.LastUpdated = time.Now()
		return nil
	}
	a, c := applyDeductFresh(it, ln.Qty)
	it.LastUpdated = time.Now()
	l.reservations[rk] = &Reservation{
		OrderID: orderID, ProductID: ln.ProductID, StoreID: ln.StoreID,
		Qty: ln.Qty, AvailableDelta: a, CurrentDelta: c, Status: ReservationConsumed,
	}
	return nil
}

func (l *MemLedger) Restore(ctx context.Context, tenantID, orderID string, ln Line) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rk := resKey(tenantID, orderID, ln.ProductID, ln.StoreID)
	res, found := l.reservations[rk]
	if !found || res.Status == ReservationReleased {
		return nil // tanpa debit yang cocok -> no-op
	}
	it, ok := l.items[itemKey(tenantID, ln.ProductID, ln.StoreID)]
	if !ok {
		return fmt.Errorf("%w: product=%s store=%s", ErrItemNotFound, ln.ProductID, ln.StoreID)
	}
	applyRestore(it, res)
	it.LastUpdated = time.Now()
	return nil
}
