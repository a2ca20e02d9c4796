package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated      = "OrderCreated"
	EventOrderApproved     = "OrderApproved"
	EventOrderCancelled    = "OrderCancelled"
	EventOrderDeleted      = "OrderDeleted"
	EventPackerStatusMoved = "PackerStatusMoved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-engine"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`                  // payload spesifik
}

// ---- Payload tipe per event ----

type ItemQty struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Qty       int    `json:"qty"`
}

// OrderRef field minimum yang dibawa semua payload order.
type OrderRef struct {
	TenantID string `json:"tenant_id"`
	OrderID  string `json:"order_id"`
}

type OrderCreatedPayload struct {
	OrderRef
	Number      string      `json:"number"`
	CustomerID  string      `json:"customer_id"`
	PaymentType PaymentType `json:"payment_type"`
	Items       []ItemQty   `json:"items"`
	TotalCents  int64       `json:"total_cents"`
}

type OrderApprovedPayload struct {
	OrderRef
	ApprovedBy string    `json:"approved_by"`
	Items      []ItemQty `json:"items"`
}

type OrderCancelledPayload struct {
	OrderRef
	FromStatus Status    `json:"from_status"`
	Items      []ItemQty `json:"items"`
}

type OrderDeletedPayload struct {
	OrderRef
	CustomerID  string      `json:"customer_id"`
	PaymentType PaymentType `json:"payment_type"`
	TotalCents  int64       `json:"total_cents"`
	Items       []ItemQty   `json:"items"`
}

type PackerStatusPayload struct {
	OrderRef
	FromStatus Status `json:"from_status"`
	ToStatus   Status `json:"to_status"`
	PreparedBy string `json:"prepared_by"`
}

// ItemQtys daftar (product, store, qty) per baris order.
func ItemQtys(items []OrderItem) []ItemQty {
	out := make([]ItemQty, 0, len(items))
	for _, it := range items {
		out = append(out, ItemQty{ProductID: it.ProductID, StoreID: it.StoreID, Qty: it.Qty})
	}
	return out
}
