package reconcile

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/engine"
)

// IntentRepo log intent ledger di Postgres (write-ahead + mark done).
type IntentRepo struct{ DB *pgxpool.Pool }

func (r *IntentRepo) Record(ctx context.Context, intents []engine.Intent) error {
	for _, in := range intents {
		_, err := r.DB.Exec(ctx, `
			INSERT INTO ledger_intents(id, tenant_id, order_id, op, product_id, store_id, qty,
			                           customer_id, amount_cents, reference, status, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'pending',$11)
			ON CONFLICT (id) DO NOTHING`,
			in.ID, in.TenantID, in.OrderID, in.Op, in.ProductID, in.StoreID, in.Qty,
			in.CustomerID, in.AmountCents, in.Reference, in.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *IntentRepo) MarkDone(ctx context.Context, tenantID, intentID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE ledger_intents SET status='done', done_at=now()
		WHERE tenant_id=$1 AND id=$2 AND status='pending'`, tenantID, intentID)
	return err
}

func (r *IntentRepo) PendingForOrder(ctx context.Context, tenantID, orderID string, olderThan time.Duration) ([]engine.Intent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, tenant_id, order_id, op, product_id, store_id, qty, customer_id, amount_cents, reference, created_at
		FROM ledger_intents
		WHERE tenant_id=$1 AND order_id=$2 AND status='pending' AND created_at < now() - $3::interval
		ORDER BY created_at`, tenantID, orderID, olderThan.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntents(rows)
}

// Pending semua tenant, utk sweep berkala.
func (r *IntentRepo) Pending(ctx context.Context, olderThan time.Duration, limit int) ([]engine.Intent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, tenant_id, order_id, op, product_id, store_id, qty, customer_id, amount_cents, reference, created_at
		FROM ledger_intents
		WHERE status='pending' AND created_at < now() - $1::interval
		ORDER BY created_at LIMIT $2`, olderThan.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntents(rows)
}

type intentRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanIntents(rows intentRows) ([]engine.Intent, error) {
	var out []engine.Intent
	for rows.Next() {
		var in engine.Intent
		if err := rows.Scan(&in.ID, &in.TenantID, &in.OrderID, &in.Op, &in.ProductID, &in.StoreID,
			&in.Qty, &in.CustomerID, &in.AmountCents, &in.Reference, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
