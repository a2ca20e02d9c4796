package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLedger ledger stok di Postgres. Tiap operasi satu tx pendek:
// lock baris reservation + baris stok, terapkan delta, commit.
// Tidak ada lock yang dipegang melintasi loop multi-item (itu urusan caller).
type PgLedger struct{ DB *pgxpool.Pool }

func (l *PgLedger) Reserve(ctx context.Context, tenantID, orderID string, ln Line) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// idempotent short-circuit: reservation sudah pernah dicatat
	if _, found, err := lockReservation(ctx, tx, tenantID, orderID, ln); err != nil {
		return err
	} else if found {
		return tx.Commit(ctx)
	}

	it, err := lockItem(ctx, tx, tenantID, ln)
	if err != nil {
		return err
	}
	d := applyReserve(&it, ln.Qty)
	if err := saveItem(ctx, tx, tenantID, it); err != nil {
		return err
	}
	if err := insertReservation(ctx, tx, tenantID, Reservation{
		OrderID: orderID, ProductID: ln.ProductID, StoreID: ln.StoreID,
		Qty: ln.Qty, AvailableDelta: d, Status: ReservationReserved,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (l *PgLedger) Deduct(ctx context.Context, tenantID, orderID string, ln Line) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, found, err := lockReservation(ctx, tx, tenantID, orderID, ln)
	if err != nil {
		return err
	}
	if found && res.Status == ReservationConsumed {
		return tx.Commit(ctx) // sudah dipotong
	}

	it, err := lockItem(ctx, tx, tenantID, ln)
	if err != nil {
		return err
	}

	if found && res.Status == ReservationReserved {
		applyDeductConsume(&it, &res, ln.Qty)
		if err := saveItem(ctx, tx, tenantID, it); err != nil {
			return err
		}
		if err := saveReservation(ctx, tx, tenantID, res); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	// reserve tidak pernah tercatat (atau sudah di-release): potong dua-duanya
	a, c := applyDeductFresh(&it, ln.Qty)
	if err := saveItem(ctx, tx, tenantID, it); err != nil {
		return err
	}
	res = Reservation{
		OrderID: orderID, ProductID: ln.ProductID, StoreID: ln.StoreID,
		Qty: ln.Qty, AvailableDelta: a, CurrentDelta: c, Status: ReservationConsumed,
	}
	if found {
		err = saveReservation(ctx, tx, tenantID, res)
	} else {
		err = insertReservation(ctx, tx, tenantID, res)
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (l *PgLedger) Restore(ctx context.Context, tenantID, orderID string, ln Line) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, found, err := lockReservation(ctx, tx, tenantID, orderID, ln)
	if err != nil {
		return err
	}
	// tanpa debit yang cocok (atau sudah di-restore) -> no-op, jangan over-credit
	if !found || res.Status == ReservationReleased {
		return tx.Commit(ctx)
	}

	it, err := lockItem(ctx, tx, tenantID, ln)
	if err != nil {
		return err
	}
	applyRestore(&it, &res)
	if err := saveItem(ctx, tx, tenantID, it); err != nil {
		return err
	}
	if err := saveReservation(ctx, tx, tenantID, res); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (l *PgLedger) Get(ctx context.Context, tenantID, productID, storeID string) (Item, error) {
	var it Item
	err := l.DB.QueryRow(ctx, `
		SELECT product_id, store_id, current_stock, reserved_stock, available_stock, last_updated
		FROM stock_items WHERE tenant_id=$1 AND product_id=$2 AND store_id=$3`,
		tenantID, productID, storeID).
		Scan(&it.ProductID, &it.StoreID, &it.CurrentStock, &it.ReservedStock, &it.AvailableStock, &it.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: product=%s store=%s", ErrItemNotFound, productID, storeID)
	}
	return it, err
}

func lockItem(ctx context.Context, tx pgx.Tx, tenantID string, ln Line) (Item, error) {
	it := Item{ProductID: ln.ProductID, StoreID: ln.StoreID}
	err := tx.QueryRow(ctx, `
		SELECT current_stock, reserved_stock, available_stock
		FROM stock_items WHERE tenant_id=$1 AND product_id=$2 AND store_id=$3 FOR UPDATE`,
		tenantID, ln.ProductID, ln.StoreID).
		Scan(&it.CurrentStock, &it.ReservedStock, &it.AvailableStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return it, fmt.Errorf("%w: product=%s store=%s", ErrItemNotFound, ln.ProductID, ln.StoreID)
	}
	return it, err
}

func saveItem(ctx context.Context, tx pgx.Tx, tenantID string, it Item) error {
	_, err := tx.Exec(ctx, `
		UPDATE stock_items
		SET current_stock=$4, reserved_stock=$5, available_stock=$6, last_updated=now()
		WHERE tenant_id=$1 AND product_id=$2 AND store_id=$3`,
		tenantID, it.ProductID, it.StoreID, it.CurrentStock, it.ReservedStock, it.AvailableStock)
	return err
}

func lockReservation(ctx context.Context, tx pgx.Tx, tenantID, orderID string, ln Line) (Reservation, bool, error) {
	res := Reservation{OrderID: orderID, ProductID: ln.ProductID, StoreID: ln.StoreID}
	var status string
	err := tx.QueryRow(ctx, `
		SELECT qty, available_delta, current_delta, status
		FROM stock_reservations
		WHERE tenant_id=$1 AND order_id=$2 AND product_id=$3 AND store_id=$4 FOR UPDATE`,
		tenantID, orderID, ln.ProductID, ln.StoreID).
		Scan(&res.Qty, &res.AvailableDelta, &res.CurrentDelta, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return res, false, nil
	}
	if err != nil {
		return res, false, err
	}
	res.Status = ReservationStatus(status)
	return res, true, nil
}

func insertReservation(ctx context.Context, tx pgx.Tx, tenantID string, res Reservation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_reservations(tenant_id, order_id, product_id, store_id, qty,
		                               available_delta, current_delta, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		ON CONFLICT (tenant_id, order_id, product_id, store_id) DO NOTHING`,
		tenantID, res.OrderID, res.ProductID, res.StoreID, res.Qty,
		res.AvailableDelta, res.CurrentDelta, string(res.Status))
	return err
}

func saveReservation(ctx context.Context, tx pgx.Tx, tenantID string, res Reservation) error {
	_, err := tx.Exec(ctx, `
		UPDATE stock_reservations SET qty=$5, available_delta=$6, current_delta=$7, status=$8
		WHERE tenant_id=$1 AND order_id=$2 AND product_id=$3 AND store_id=$4`,
		tenantID, res.OrderID, res.ProductID, res.StoreID, res.Qty,
		res.AvailableDelta, res.CurrentDelta, string(res.Status))
	return err
}
