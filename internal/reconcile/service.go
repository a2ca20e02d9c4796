package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/credit"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/engine"
	kafkax "github.com/ElisaKikota/Business-Management-System-sub000/internal/kafka"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/redisx"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/stock"
)

// IntentSource sisi baca + mark-done dari log intent; dipenuhi IntentRepo.
type IntentSource interface {
	PendingForOrder(ctx context.Context, tenantID, orderID string, olderThan time.Duration) ([]engine.Intent, error)
	Pending(ctx context.Context, olderThan time.Duration, limit int) ([]engine.Intent, error)
	MarkDone(ctx context.Context, tenantID, intentID string) error
}

// Service replay intent ledger yang masih pending. Event order cuma trigger;
// sumber kebenaran tetap tabel ledger_intents. Semua operasi ledger idempotent
// (reservation row / reference kredit), jadi replay ganda aman.
type Service struct {
	Intents     IntentSource
	Stock       engine.StockLedger
	Credit      engine.CreditLedger
	Redis       *redis.Client
	ServiceName string
	Grace       time.Duration // jeda sebelum intent dianggap terlantar
	Log         *logrus.Logger
}

// HandleOrderEvent dipasang sebagai handler consumer.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup via Redis (pakai event_id); tanpa Redis, andalkan idempotensi ledger
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "reconciler", env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	ref, err := kafkax.UnwrapPayload[orders.OrderRef](env.Payload)
	if err != nil {
		return err
	}
	if ref.TenantID == "" || ref.OrderID == "" {
		return nil // payload tanpa ref order, abaikan
	}

	pending, err := s.Intents.PendingForOrder(ctx, ref.TenantID, ref.OrderID, s.Grace)
	if err != nil {
		return err
	}
	s.applyAll(ctx, pending)
	return nil
}

// Sweep jalan berkala utk intent yang event-nya ikut hilang.
func (s *Service) Sweep(ctx context.Context, every time.Duration, batch int) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pending, err := s.Intents.Pending(ctx, s.Grace, batch)
			if err != nil {
				s.Log.WithError(err).Warn("load pending intents failed")
				continue
			}
			s.applyAll(ctx, pending)
		}
	}
}

func (s *Service) applyAll(ctx context.Context, intents []engine.Intent) {
	for _, in := range intents {
		if err := s.apply(ctx, in); err != nil {
			s.Log.WithFields(logrus.Fields{
				"intent_id": in.ID, "tenant_id": in.TenantID, "order_id": in.OrderID, "op": in.Op,
			}).WithError(err).Warn("intent replay failed")
			continue
		}
		if err := s.Intents.MarkDone(ctx, in.TenantID, in.ID); err != nil {
			s.Log.WithFields(logrus.Fields{"intent_id": in.ID}).WithError(err).Warn("mark intent done failed")
		}
	}
}

func (s *Service) apply(ctx context.Context, in engine.Intent) error {
	switch in.Op {
	case engine.OpReserve:
		return s.Stock.Reserve(ctx, in.TenantID, in.OrderID, stock.Line{ProductID: in.ProductID, StoreID: in.StoreID, Qty: in.Qty})
	case engine.OpDeduct:
		return s.Stock.Deduct(ctx, in.TenantID, in.OrderID, stock.Line{ProductID: in.ProductID, StoreID: in.StoreID, Qty: in.Qty})
	case engine.OpRestore:
		return s.Stock.Restore(ctx, in.TenantID, in.OrderID, stock.Line{ProductID: in.ProductID, StoreID: in.StoreID, Qty: in.Qty})
	case engine.OpCreditInvoice:
		return s.Credit.Post(ctx, in.TenantID, in.CustomerID, credit.Transaction{
			ID: uuid.NewString(), Type: credit.TxInvoice, AmountCents: in.AmountCents,
			Reference: in.Reference, Note: "replayed invoice", CreatedAt: time.Now().UTC(),
		})
	case engine.OpCreditRefund:
		return s.Credit.Post(ctx, in.TenantID, in.CustomerID, credit.Transaction{
			ID: uuid.NewString(), Type: credit.TxRefund, AmountCents: in.AmountCents,
			Reference: in.Reference, Note: "replayed refund", CreatedAt: time.Now().UTC(),
		})
	default:
		return fmt.Errorf("unknown intent op %q", in.Op)
	}
}
