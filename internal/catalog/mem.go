package catalog

import (
	"context"
	"sync"
)

// MemCatalog utk test engine.
type MemCatalog struct {
	mu       sync.Mutex
	products map[string]Product // key tenant/id
	stores   map[string]Store
}

func NewMemCatalog() *MemCatalog {
	return &MemCatalog{products: map[string]Product{}, stores: map[string]Store{}}
}

func (c *MemCatalog) PutProduct(tenantID string, p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[tenantID+"/"+p.ID] = p
}

func (c *MemCatalog) PutStore(tenantID string, s Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores[tenantID+"/"+s.ID] = s
}

func (c *MemCatalog) ProductByID(ctx context.Context, tenantID, id string) (Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[tenantID+"/"+id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (c *MemCatalog) StoreByID(ctx context.Context, tenantID, id string) (Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stores[tenantID+"/"+id]
	if !ok {
		return Store{}, ErrStoreNotFound
	}
	return s, nil
}
