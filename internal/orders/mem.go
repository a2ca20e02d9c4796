package orders

import (
	"context"
	"sync"
	"time"
)

// MemStore implementasi in-memory, dipakai di test engine.
type MemStore struct {
	mu     sync.Mutex
	orders map[string]*Order // key tenant_id + "/" + id
}

func NewMemStore() *MemStore {
	return &MemStore{orders: map[string]*Order{}}
}

func memKey(tenantID, id string) string { return tenantID + "/" + id }

func (s *MemStore) Create(ctx context.Context, tenantID string, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.TenantID = tenantID
	s.orders[memKey(tenantID, o.ID)] = &cp
	return nil
}

func (s *MemStore) Get(ctx context.Context, tenantID, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[memKey(tenantID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *MemStore) mutate(tenantID, id string, f func(o *Order)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[memKey(tenantID, id)]
	if !ok {
		return ErrNotFound
	}
	f(o)
	o.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) UpdateStatus(ctx context.Context, tenantID, id string, st Status) error {
	return s.mutate(tenantID, id, func(o *Order) { o.Status = st })
}

func (s *MemStore) SetApproved(ctx context.Context, tenantID, id, approver string, at time.Time) error {
	return s.mutate(tenantID, id, func(o *Order) {
		o.Status = StatusApproved
		o.ApprovedBy = approver
		o.ApprovedAt = &at
	})
}

func (s *MemStore) SetPackerState(ctx context.Context, tenantID, id string, st Status, preparedBy string, at time.Time) error {
	return s.mutate(tenantID, id, func(o *Order) {
		o.Status = st
		o.PreparedBy = preparedBy
		o.PreparedAt = &at
	})
}

func (s *MemStore) SetPaymentStatus(ctx context.Context, tenantID, id string, st PaymentStatus) error {
	return s.mutate(tenantID, id, func(o *Order) { o.PaymentStatus = st })
}

func (s *MemStore) SetTransporter(ctx context.Context, tenantID, id string, t TransporterDetails) error {
	return s.mutate(tenantID, id, func(o *Order) { cp := t; o.Transporter = &cp })
}

func (s *MemStore) SetCargoReceipt(ctx context.Context, tenantID, id string, c CargoReceipt) error {
	return s.mutate(tenantID, id, func(o *Order) { cp := c; o.CargoReceipt = &cp })
}

func (s *MemStore) Delete(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(tenantID, id)
	if _, ok := s.orders[k]; !ok {
		return ErrNotFound
	}
	delete(s.orders, k)
	return nil
}
