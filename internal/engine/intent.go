package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
)

const (
	OpReserve       = "reserve"
	OpDeduct        = "deduct"
	OpRestore       = "restore"
	OpCreditInvoice = "credit_invoice"
	OpCreditRefund  = "credit_refund"
)

// Intent write-ahead: dicatat sebelum side effect ledger dijalankan dan
// ditandai done sesudahnya. Yang masih pending bisa di-replay reconciler,
// jadi partial failure minimal kelihatan dan bisa diulang.
type Intent struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	OrderID     string    `json:"order_id"`
	Op          string    `json:"op"`
	ProductID   string    `json:"product_id,omitempty"`
	StoreID     string    `json:"store_id,omitempty"`
	Qty         int       `json:"qty,omitempty"`
	CustomerID  string    `json:"customer_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type IntentLog interface {
	Record(ctx context.Context, intents []Intent) error
	MarkDone(ctx context.Context, tenantID, intentID string) error
}

func stockIntents(tenantID string, o *orders.Order, op string, now time.Time) []Intent {
	out := make([]Intent, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, Intent{
			ID: uuid.NewString(), TenantID: tenantID, OrderID: o.ID, Op: op,
			ProductID: it.ProductID, StoreID: it.StoreID, Qty: it.Qty, CreatedAt: now,
		})
	}
	return out
}

func creditIntent(tenantID string, o *orders.Order, op string, now time.Time) Intent {
	return Intent{
		ID: uuid.NewString(), TenantID: tenantID, OrderID: o.ID, Op: op,
		CustomerID: o.Customer.ID, AmountCents: o.TotalCents, Reference: o.ID, CreatedAt: now,
	}
}
