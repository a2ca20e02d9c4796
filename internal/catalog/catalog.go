package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrStoreNotFound   = errors.New("store not found")
)

// Data referensi read-mostly; engine baca, tidak pernah menulis.

type Product struct {
	ID             string `json:"id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	MinStockLevel  int    `json:"min_stock_level"`
	MaxStockLevel  int    `json:"max_stock_level"`
}

type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PgCatalog struct{ DB *pgxpool.Pool }

func (c *PgCatalog) ProductByID(ctx context.Context, tenantID, id string) (Product, error) {
	var p Product
	err := c.DB.QueryRow(ctx, `
		SELECT id, sku, name, unit, unit_price_cents, min_stock_level, max_stock_level
		FROM products WHERE tenant_id=$1 AND id=$2`, tenantID, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &p.UnitPriceCents, &p.MinStockLevel, &p.MaxStockLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (c *PgCatalog) StoreByID(ctx context.Context, tenantID, id string) (Store, error) {
	var s Store
	err := c.DB.QueryRow(ctx, `SELECT id, name FROM stores WHERE tenant_id=$1 AND id=$2`, tenantID, id).
		Scan(&s.ID, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Store{}, ErrStoreNotFound
	}
	return s, err
}

func (c *PgCatalog) ListProducts(ctx context.Context, tenantID string) ([]Product, error) {
	rows, err := c.DB.Query(ctx, `
		SELECT id, sku, name, unit, unit_price_cents, min_stock_level, max_stock_level
		FROM products WHERE tenant_id=$1 ORDER BY sku`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &p.UnitPriceCents, &p.MinStockLevel, &p.MaxStockLevel); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
