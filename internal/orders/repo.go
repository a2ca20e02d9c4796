package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// Create insert order + items dalam satu tx. Total sudah dihitung engine
// dari harga katalog (jangan trust dari client).
func (r *Repo) Create(ctx context.Context, tenantID string, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, tenant_id, number, external_ref, customer_id, customer_name, customer_email, customer_phone,
		                   status, payment_type, payment_status, total_cents, packer_id, packer_name,
		                   delivery_method, delivery_address, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)
	`, o.ID, tenantID, o.Number, o.ExternalRef, o.Customer.ID, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		string(o.Status), string(o.PaymentType), string(o.PaymentStatus), o.TotalCents,
		o.Packer.ID, o.Packer.Name, string(o.DeliveryMethod), o.DeliveryAddress, o.CreatedBy, o.CreatedAt)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, tenant_id, product_id, store_id, name, sku, unit,
			                        unit_price_cents, qty, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			it.ID, o.ID, tenantID, it.ProductID, it.StoreID, it.Name, it.SKU, it.Unit,
			it.UnitPriceCents, it.Qty, it.TotalCents,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, tenantID, id string) (*Order, error) {
	var (
		o                                    Order
		status, ptype, pstatus, dmethod      string
		transName, transPhone, transVehicle  *string
		rcptNo, rcptName, rcptPhone, rcptImg *string
		approvedBy, preparedBy               *string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, number, customer_id, customer_name, customer_email, customer_phone,
		       status, payment_type, payment_status, total_cents, packer_id, packer_name,
		       delivery_method, delivery_address,
		       transporter_name, transporter_phone, transporter_vehicle,
		       receipt_number, receipt_transporter_name, receipt_transporter_phone, receipt_image_ref,
		       created_by, created_at, approved_by, approved_at, prepared_by, prepared_at, updated_at
		FROM orders WHERE tenant_id=$1 AND id=$2`, tenantID, id).Scan(
		&o.ID, &o.Number, &o.Customer.ID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&status, &ptype, &pstatus, &o.TotalCents, &o.Packer.ID, &o.Packer.Name,
		&dmethod, &o.DeliveryAddress,
		&transName, &transPhone, &transVehicle,
		&rcptNo, &rcptName, &rcptPhone, &rcptImg,
		&o.CreatedBy, &o.CreatedAt, &approvedBy, &o.ApprovedAt, &preparedBy, &o.PreparedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.TenantID = tenantID
	o.ApprovedBy = deref(approvedBy)
	o.PreparedBy = deref(preparedBy)
	o.Status = Status(status)
	o.PaymentType = PaymentType(ptype)
	o.PaymentStatus = PaymentStatus(pstatus)
	o.DeliveryMethod = DeliveryMethod(dmethod)
	if transName != nil {
		o.Transporter = &TransporterDetails{Name: *transName, Phone: deref(transPhone), VehicleNumber: deref(transVehicle)}
	}
	if rcptNo != nil {
		o.CargoReceipt = &CargoReceipt{
			ReceiptNumber:    *rcptNo,
			TransporterName:  deref(rcptName),
			TransporterPhone: deref(rcptPhone),
			ImageRef:         deref(rcptImg),
		}
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, store_id, name, sku, unit, unit_price_cents, qty, total_cents
		FROM order_items WHERE tenant_id=$1 AND order_id=$2 ORDER BY id`, tenantID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it := OrderItem{OrderID: o.ID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.StoreID, &it.Name, &it.SKU, &it.Unit,
			&it.UnitPriceCents, &it.Qty, &it.TotalCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, tenantID, id string, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$3, updated_at=now() WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, string(s))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetApproved(ctx context.Context, tenantID, id, approver string, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, approved_by=$4, approved_at=$5, updated_at=now()
		WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, string(StatusApproved), approver, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetPackerState(ctx context.Context, tenantID, id string, s Status, preparedBy string, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, prepared_by=$4, prepared_at=$5, updated_at=now()
		WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, string(s), preparedBy, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetPaymentStatus(ctx context.Context, tenantID, id string, s PaymentStatus) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET payment_status=$3, updated_at=now() WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, string(s))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetTransporter(ctx context.Context, tenantID, id string, t TransporterDetails) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET transporter_name=$3, transporter_phone=$4, transporter_vehicle=$5, updated_at=now()
		WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, t.Name, t.Phone, t.VehicleNumber)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetCargoReceipt(ctx context.Context, tenantID, id string, c CargoReceipt) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET receipt_number=$3, receipt_transporter_name=$4, receipt_transporter_phone=$5,
		       receipt_image_ref=$6, updated_at=now()
		WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, c.ReceiptNumber, c.TransporterName, c.TransporterPhone, c.ImageRef)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, tenantID, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE tenant_id=$1 AND order_id=$2`, tenantID, id); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// FindByExternalRef utk idempotency create (external_ref disimpan di kolom sendiri).
func (r *Repo) FindByExternalRef(ctx context.Context, tenantID, ref string) (string, bool, error) {
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE tenant_id=$1 AND external_ref=$2`, tenantID, ref).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
