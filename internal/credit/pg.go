package credit

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLedger log transaksi kredit di Postgres. Append + recompute creditUsed
// dalam satu tx; baris transaksi tidak pernah di-update atau dihapus.
type PgLedger struct{ DB *pgxpool.Pool }

// Post append transaksi lalu hitung ulang credit_used dari log.
// Idempotent per (type, reference): posting ulang dgn reference sama di-skip,
// supaya replay dari reconciler tidak double-count.
func (l *PgLedger) Post(ctx context.Context, tenantID, customerID string, t Transaction) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if t.Reference != "" {
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT true FROM customer_credit_transactions
			WHERE tenant_id=$1 AND customer_id=$2 AND type=$3 AND reference=$4
			LIMIT 1`, tenantID, customerID, string(t.Type), t.Reference).Scan(&exists)
		if err == nil {
			return tx.Commit(ctx)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO customer_credit_transactions(id, tenant_id, customer_id, type, amount_cents, reference, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, tenantID, customerID, string(t.Type), t.AmountCents, t.Reference, t.Note, t.CreatedAt)
	if err != nil {
		return err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE customers SET credit_used_cents = (
			SELECT COALESCE(SUM(CASE WHEN type='invoice' THEN amount_cents ELSE -amount_cents END), 0)
			FROM customer_credit_transactions
			WHERE tenant_id=$1 AND customer_id=$2
		)
		WHERE tenant_id=$1 AND id=$2`, tenantID, customerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return tx.Commit(ctx)
}

// Headroom sisa plafon = credit_limit - credit_used, dibaca apa adanya.
// Check-then-act: pembacaan ini dan posting invoice berikutnya TIDAK atomik.
func (l *PgLedger) Headroom(ctx context.Context, tenantID, customerID string) (int64, error) {
	var limit, used int64
	err := l.DB.QueryRow(ctx, `
		SELECT credit_limit_cents, credit_used_cents FROM customers
		WHERE tenant_id=$1 AND id=$2`, tenantID, customerID).Scan(&limit, &used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCustomerNotFound
	}
	if err != nil {
		return 0, err
	}
	return limit - used, nil
}
