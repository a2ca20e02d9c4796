package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/authz"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/catalog"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/credit"
	kafkax "github.com/ElisaKikota/Business-Management-System-sub000/internal/kafka"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/stock"
)

type OrdersStore interface {
	Create(ctx context.Context, tenantID string, o *orders.Order) error
	Get(ctx context.Context, tenantID, id string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, tenantID, id string, s orders.Status) error
	SetApproved(ctx context.Context, tenantID, id, approver string, at time.Time) error
	SetPackerState(ctx context.Context, tenantID, id string, s orders.Status, preparedBy string, at time.Time) error
	SetPaymentStatus(ctx context.Context, tenantID, id string, s orders.PaymentStatus) error
	SetTransporter(ctx context.Context, tenantID, id string, t orders.TransporterDetails) error
	SetCargoReceipt(ctx context.Context, tenantID, id string, c orders.CargoReceipt) error
	Delete(ctx context.Context, tenantID, id string) error
}

type StockLedger interface {
	Reserve(ctx context.Context, tenantID, orderID string, ln stock.Line) error
	Deduct(ctx context.Context, tenantID, orderID string, ln stock.Line) error
	Restore(ctx context.Context, tenantID, orderID string, ln stock.Line) error
}

type CreditLedger interface {
	Post(ctx context.Context, tenantID, customerID string, t credit.Transaction) error
	Headroom(ctx context.Context, tenantID, customerID string) (int64, error)
}

type Catalog interface {
	ProductByID(ctx context.Context, tenantID, id string) (catalog.Product, error)
	StoreByID(ctx context.Context, tenantID, id string) (catalog.Store, error)
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Engine state machine order + orkestrasi ledger. Tenant selalu parameter
// eksplisit, tidak ada "bisnis aktif" ambient.
type Engine struct {
	Orders   OrdersStore
	Stock    StockLedger
	Credit   CreditLedger
	Catalog  Catalog
	Gate     authz.Gate
	Intents  IntentLog
	Producer Publisher
	Service  string
	Log      *logrus.Logger
}

type CreateItemInput struct {
	ProductID string
	StoreID   string
	Qty       int
}

type CreateOrderInput struct {
	ActorID         string
	ExternalRef     string
	Customer        orders.CustomerRef
	Packer          orders.PackerRef
	PaymentType     orders.PaymentType
	DeliveryMethod  orders.DeliveryMethod
	DeliveryAddress string
	Items           []CreateItemInput
}

// CreateOrder validasi dulu semuanya, baru mutasi. Order tetap dibuat
// meskipun reserve/posting kredit gagal (best-effort, lihat intent.go);
// kegagalan cuma kelihatan di log + intent pending.
func (e *Engine) CreateOrder(ctx context.Context, tenantID string, in CreateOrderInput) (*orders.Order, error) {
	if len(in.Items) == 0 {
		return nil, validationf("order needs at least one item")
	}
	if in.Customer.ID == "" {
		return nil, validationf("customer is required")
	}
	if in.Packer.ID == "" {
		return nil, validationf("assigned packer is required")
	}
	if !orders.ValidPaymentType(in.PaymentType) {
		return nil, validationf("invalid payment type %q", in.PaymentType)
	}
	if !orders.ValidDeliveryMethod(in.DeliveryMethod) {
		return nil, validationf("delivery method is required")
	}
	if in.DeliveryMethod != orders.DeliveryCustomerPickup && strings.TrimSpace(in.DeliveryAddress) == "" {
		return nil, validationf("delivery address is required for %s", in.DeliveryMethod)
	}

	now := time.Now().UTC()
	o := &orders.Order{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Number:          orders.NewNumber(now),
		ExternalRef:     in.ExternalRef,
		Customer:        in.Customer,
		Status:          orders.StatusPending,
		PaymentType:     in.PaymentType,
		PaymentStatus:   orders.PaymentStatusPending,
		Packer:          in.Packer,
		DeliveryMethod:  in.DeliveryMethod,
		DeliveryAddress: in.DeliveryAddress,
		CreatedBy:       in.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, it := range in.Items {
		if it.Qty <= 0 {
			return nil, validationf("invalid qty for product %s", it.ProductID)
		}
		p, err := e.Catalog.ProductByID(ctx, tenantID, it.ProductID)
		if err != nil {
			return nil, err
		}
		if _, err := e.Catalog.StoreByID(ctx, tenantID, it.StoreID); err != nil {
			return nil, err
		}
		line := orders.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        o.ID,
			ProductID:      p.ID,
			StoreID:        it.StoreID,
			Name:           p.Name,
			SKU:            p.SKU,
			Unit:           p.Unit,
			UnitPriceCents: p.UnitPriceCents,
			Qty:            it.Qty,
			TotalCents:     p.UnitPriceCents * int64(it.Qty),
		}
		o.Items = append(o.Items, line)
		o.TotalCents += line.TotalCents
	}

	// cek kelayakan kredit: read-then-decide. Dua order kredit concurrent utk
	// customer yang sama bisa lolos dua-duanya; itu kontrak yang dipertahankan.
	if in.PaymentType == orders.PaymentCredit {
		headroom, err := e.Credit.Headroom(ctx, tenantID, in.Customer.ID)
		if err != nil {
			return nil, err
		}
		if o.TotalCents > headroom {
			return nil, validationf("insufficient credit: order total %d exceeds available credit %d", o.TotalCents, headroom)
		}
	}

	if err := e.Orders.Create(ctx, tenantID, o); err != nil {
		return nil, err
	}

	// stock dulu per baris sesuai urutan list, kredit paling akhir
	ins := stockIntents(tenantID, o, OpReserve, now)
	e.recordIntents(ctx, ins)
	for i, it := range o.Items {
		ln := stock.Line{ProductID: it.ProductID, StoreID: it.StoreID, Qty: it.Qty}
		if err := e.Stock.Reserve(ctx, tenantID, o.ID, ln); err != nil {
			e.logLedgerFailure(OpReserve, tenantID, o.ID, it.ProductID, it.StoreID, err)
			continue
		}
		e.intentDone(ctx, ins[i])
	}
	if in.PaymentType == orders.PaymentCredit {
		ci := creditIntent(tenantID, o, OpCreditInvoice, now)
		e.recordIntents(ctx, []Intent{ci})
		tx := credit.Transaction{
			ID: uuid.NewString(), Type: credit.TxInvoice, AmountCents: o.TotalCents,
			Reference: o.ID, Note: "order " + o.Number, CreatedAt: now,
		}
		if err := e.Credit.Post(ctx, tenantID, o.Customer.ID, tx); err != nil {
			e.Log.WithFields(logrus.Fields{
				"tenant_id": tenantID, "order_id": o.ID, "customer_id": o.Customer.ID, "op": OpCreditInvoice,
			}).WithError(err).Error("credit ledger post failed")
		} else {
			e.intentDone(ctx, ci)
		}
	}

	e.publish(orders.TopicOrderCreated, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderRef:    orders.OrderRef{TenantID: tenantID, OrderID: o.ID},
		Number:      o.Number,
		CustomerID:  o.Customer.ID,
		PaymentType: o.PaymentType,
		Items:       orders.ItemQtys(o.Items),
		TotalCents:  o.TotalCents,
	})
	return o, nil
}

// ApproveOrder gerbang approve: precondition dicek semua sebelum ada mutasi.
func (e *Engine) ApproveOrder(ctx context.Context, tenantID, orderID, approverID string) (*orders.Order, error) {
	if err := e.requirePermission(ctx, tenantID, approverID, authz.PermApproveOrders); err != nil {
		return nil, err
	}
	o, err := e.Orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Packer.ID == "" {
		return nil, validationf("order %s has no assigned packer", o.Number)
	}
	if !orders.ValidDeliveryMethod(o.DeliveryMethod) {
		return nil, validationf("order %s has no delivery method", o.Number)
	}
	if o.DeliveryMethod != orders.DeliveryCustomerPickup && strings.TrimSpace(o.DeliveryAddress) == "" {
		return nil, validationf("order %s has no delivery address", o.Number)
	}
	if !orders.CanTransition(o.Status, orders.StatusApproved) {
		return nil, validationf("illegal status transition %s -> %s", o.Status, orders.StatusApproved)
	}

	now := time.Now().UTC()
	ins := stockIntents(tenantID, o, OpDeduct, now)
	e.recordIntents(ctx, ins)
	for i, it := range o.Items {
		ln := stock.Line{ProductID: it.ProductID, StoreID: it.StoreID, Qty: it.Qty}
		if err := e.Stock.Deduct(ctx, tenantID, o.ID, ln); err != nil {
			e.logLedgerFailure(OpDeduct, tenantID, o.ID, it.ProductID, it.StoreID, err)
			continue
		}
		e.intentDone(ctx, ins[i])
	}

	if err := e.Orders.SetApproved(ctx, tenantID, orderID, approverID, now); err != nil {
		return nil, err
	}
	o.Status = orders.StatusApproved
	o.ApprovedBy = approverID
	o.ApprovedAt = &now

	e.publish(orders.TopicOrderApproved, orders.EventOrderApproved, o.ID, orders.OrderApprovedPayload{
		OrderRef:   orders.OrderRef{TenantID: tenantID, OrderID: o.ID},
		ApprovedBy: approverID,
		Items:      orders.ItemQtys(o.Items),
	})
	return o, nil
}

// UpdateOrderStatus transisi generik; cuma cancel yang punya efek ledger
// (restore semua baris sebelum status di-commit).
func (e *Engine) UpdateOrderStatus(ctx context.Context, tenantID, orderID string, next orders.Status, actorID string) (*orders.Order, error) {
	if err := e.requirePermission(ctx, tenantID, actorID, authz.PermManageOrders); err != nil {
		return nil, err
	}
	if !orders.ValidStatus(next) {
		return nil, validationf("unknown status %q", next)
	}
	o, err := e.Orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(o.Status, next) {
		return nil, validationf("illegal status transition %s -> %s", o.Status, next)
	}

	if next == orders.StatusCancelled {
		e.restoreAll(ctx, tenantID, o)
		e.refundCredit(ctx, tenantID, o)
	}
	if err := e.Orders.UpdateStatus(ctx, tenantID, orderID, next); err != nil {
		return nil, err
	}
	from := o.Status
	o.Status = next

	if next == orders.StatusCancelled {
		e.publish(orders.TopicOrderCancelled, orders.EventOrderCancelled, o.ID, orders.OrderCancelledPayload{
			OrderRef:   orders.OrderRef{TenantID: tenantID, OrderID: o.ID},
			FromStatus: from,
			Items:      orders.ItemQtys(o.Items),
		})
	}
	return o, nil
}

// DeleteOrder urutan: restore stok -> refund kredit -> hapus record.
// Tiap langkah toleran gagal sendiri-sendiri (log, lanjut).
func (e *Engine) DeleteOrder(ctx context.Context, tenantID, orderID, actorID string) error {
	if err := e.requirePermission(ctx, tenantID, actorID, authz.PermManageOrders); err != nil {
		return err
	}
	o, err := e.Orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return err
	}

	e.restoreAll(ctx, tenantID, o)
	e.refundCredit(ctx, tenantID, o)

	if err := e.Orders.Delete(ctx, tenantID, orderID); err != nil {
		return err
	}
	e.publish(orders.TopicOrderDeleted, orders.EventOrderDeleted, o.ID, orders.OrderDeletedPayload{
		OrderRef:    orders.OrderRef{TenantID: tenantID, OrderID: o.ID},
		CustomerID:  o.Customer.ID,
		PaymentType: o.PaymentType,
		TotalCents:  o.TotalCents,
		Items:       orders.ItemQtys(o.Items),
	})
	return nil
}

// UpdatePaymentStatus mutasi field murni, tanpa efek ledger.
func (e *Engine) UpdatePaymentStatus(ctx context.Context, tenantID, orderID string, s orders.PaymentStatus, actorID string) (*orders.Order, error) {
	if err := e.requirePermission(ctx, tenantID, actorID, authz.PermManageOrders); err != nil {
		return nil, err
	}
	if !orders.ValidPaymentStatus(s) {
		return nil, validationf("unknown payment status %q", s)
	}
	o, err := e.Orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.Orders.SetPaymentStatus(ctx, tenantID, orderID, s); err != nil {
		return nil, err
	}
	o.PaymentStatus = s
	return o, nil
}

func (e *Engine) GetOrder(ctx context.Context, tenantID, orderID string) (*orders.Order, error) {
	return e.Orders.Get(ctx, tenantID, orderID)
}

func (e *Engine) restoreAll(ctx context.Context, tenantID string, o *orders.Order) {
	now := time.Now().UTC()
	ins := stockIntents(tenantID, o, OpRestore, now)
	e.recordIntents(ctx, ins)
	for i, it := range o.Items {
		ln := stock.Line{ProductID: it.ProductID, StoreID: it.StoreID, Qty: it.Qty}
		if err := e.Stock.Restore(ctx, tenantID, o.ID, ln); err != nil {
			e.logLedgerFailure(OpRestore, tenantID, o.ID, it.ProductID, it.StoreID, err)
			continue
		}
		e.intentDone(ctx, ins[i])
	}
}

// refundCredit membalikkan invoice order kredit saat cancel/delete.
// Idempotent per (type, reference): delete setelah cancel tidak dobel refund.
func (e *Engine) refundCredit(ctx context.Context, tenantID string, o *orders.Order) {
	if o.PaymentType != orders.PaymentCredit {
		return
	}
	now := time.Now().UTC()
	ci := creditIntent(tenantID, o, OpCreditRefund, now)
	e.recordIntents(ctx, []Intent{ci})
	tx := credit.Transaction{
		ID: uuid.NewString(), Type: credit.TxRefund, AmountCents: o.TotalCents,
		Reference: o.ID, Note: "order " + o.Number + " reversed", CreatedAt: now,
	}
	if err := e.Credit.Post(ctx, tenantID, o.Customer.ID, tx); err != nil {
		e.Log.WithFields(logrus.Fields{
			"tenant_id": tenantID, "order_id": o.ID, "customer_id": o.Customer.ID, "op": OpCreditRefund,
		}).WithError(err).Error("credit ledger post failed")
	} else {
		e.intentDone(ctx, ci)
	}
}

func (e *Engine) requirePermission(ctx context.Context, tenantID, userID, perm string) error {
	ok, err := e.Gate.HasPermission(ctx, tenantID, userID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", perm, authz.ErrPermissionDenied)
	}
	return nil
}

func (e *Engine) recordIntents(ctx context.Context, ins []Intent) {
	if e.Intents == nil || len(ins) == 0 {
		return
	}
	if err := e.Intents.Record(ctx, ins); err != nil {
		e.Log.WithError(err).Warn("record ledger intents failed")
	}
}

func (e *Engine) intentDone(ctx context.Context, in Intent) {
	if e.Intents == nil {
		return
	}
	if err := e.Intents.MarkDone(ctx, in.TenantID, in.ID); err != nil {
		e.Log.WithFields(logrus.Fields{"intent_id": in.ID, "op": in.Op}).
			WithError(err).Warn("mark intent done failed")
	}
}

func (e *Engine) logLedgerFailure(op, tenantID, orderID, productID, storeID string, err error) {
	e.Log.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"order_id":   orderID,
		"product_id": productID,
		"store_id":   storeID,
		"op":         op,
	}).WithError(err).Error("stock ledger update failed")
}

func (e *Engine) publish(topic, eventType, orderID string, payload any) {
	if e.Producer == nil {
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	e.Producer.Publish(topic, orders.PartitionKey(orderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
