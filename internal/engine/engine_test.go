package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/authz"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/catalog"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/credit"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/stock"
)

const tenant = "tenant-1"

// memIntents log intent in-memory utk verifikasi pending/done di test.
type memIntents struct {
	mu      sync.Mutex
	pending map[string]Intent
	done    map[string]Intent
}

func newMemIntents() *memIntents {
	return &memIntents{pending: map[string]Intent{}, done: map[string]Intent{}}
}

func (m *memIntents) Record(ctx context.Context, ins []Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range ins {
		m.pending[in.ID] = in
	}
	return nil
}

func (m *memIntents) MarkDone(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.pending[id]
	if !ok {
		return nil
	}
	delete(m.pending, id)
	m.done[id] = in
	return nil
}

func (m *memIntents) pendingOps() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, in := range m.pending {
		out = append(out, in.Op)
	}
	return out
}

// failingStock selalu gagal; order harus tetap jadi (best-effort).
type failingStock struct{}

func (failingStock) Reserve(ctx context.Context, tenantID, orderID string, ln stock.Line) error {
	return errors.New("stock backend down")
}
func (failingStock) Deduct(ctx context.Context, tenantID, orderID string, ln stock.Line) error {
	return errors.New("stock backend down")
}
func (failingStock) Restore(ctx context.Context, tenantID, orderID string, ln stock.Line) error {
	return errors.New("stock backend down")
}

type fixture struct {
	eng     *Engine
	store   *orders.MemStore
	stock   *stock.MemLedger
	credit  *credit.MemLedger
	intents *memIntents
}

func newFixture() *fixture {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cat := catalog.NewMemCatalog()
	cat.PutProduct(tenant, catalog.Product{ID: "p1", SKU: "SKU-1", Name: "Rice 5kg", Unit: "bag", UnitPriceCents: 10_000})
	cat.PutProduct(tenant, catalog.Product{ID: "p2", SKU: "SKU-2", Name: "Sugar 1kg", Unit: "pc", UnitPriceCents: 3_000})
	cat.PutStore(tenant, catalog.Store{ID: "s1", Name: "Main"})

	sl := stock.NewMemLedger()
	sl.Put(tenant, stock.Item{ProductID: "p1", StoreID: "s1", CurrentStock: 10, AvailableStock: 10})
	sl.Put(tenant, stock.Item{ProductID: "p2", StoreID: "s1", CurrentStock: 20, AvailableStock: 20})

	cl := credit.NewMemLedger()
	cl.PutAccount(tenant, credit.Account{CustomerID: "c1", CreditLimitCents: 100_000})

	st := orders.NewMemStore()
	ints := newMemIntents()
	f := &fixture{store: st, stock: sl, credit: cl, intents: ints}
	f.eng = &Engine{
		Orders:  st,
		Stock:   sl,
		Credit:  cl,
		Catalog: cat,
		Gate: &authz.Static{Perms: map[string][]string{
			"boss":   {authz.PermApproveOrders, authz.PermManageOrders},
			"packer": {authz.PermPrepareOrders},
			"admin":  {authz.PermApproveOrders, authz.PermPrepareOrders, authz.PermManageOrders},
		}},
		Intents: ints,
		Service: "test",
		Log:     log,
	}
	return f
}

func baseInput() CreateOrderInput {
	return CreateOrderInput{
		ActorID:        "clerk",
		Customer:       orders.CustomerRef{ID: "c1", Name: "Asha"},
		Packer:         orders.PackerRef{ID: "packer", Name: "Juma"},
		PaymentType:    orders.PaymentCash,
		DeliveryMethod: orders.DeliveryCustomerPickup,
		Items:          []CreateItemInput{{ProductID: "p1", StoreID: "s1", Qty: 4}},
	}
}

func stockOf(t *testing.T, f *fixture, productID string) stock.Item {
	t.Helper()
	it, err := f.stock.Get(context.Background(), tenant, productID, "s1")
	require.NoError(t, err)
	return it
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	cases := []struct {
		name   string
		mut    func(*CreateOrderInput)
		reason string
	}{
		{"no items", func(in *CreateOrderInput) { in.Items = nil }, "at least one item"},
		{"no customer", func(in *CreateOrderInput) { in.Customer = orders.CustomerRef{} }, "customer"},
		{"no packer", func(in *CreateOrderInput) { in.Packer = orders.PackerRef{} }, "packer"},
		{"bad payment type", func(in *CreateOrderInput) { in.PaymentType = "barter" }, "payment type"},
		{"no delivery method", func(in *CreateOrderInput) { in.DeliveryMethod = "" }, "delivery method"},
		{"local delivery without address", func(in *CreateOrderInput) {
			in.DeliveryMethod = orders.DeliveryLocal
			in.DeliveryAddress = " "
		}, "delivery address"},
		{"zero qty", func(in *CreateOrderInput) { in.Items[0].Qty = 0 }, "qty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mut(&in)
			_, err := f.eng.CreateOrder(ctx, tenant, in)
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}

	// produk tidak dikenal bukan validation error biasa tapi tetap menolak
	in := baseInput()
	in.Items[0].ProductID = "ghost"
	_, err := f.eng.CreateOrder(ctx, tenant, in)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	// semua kasus di atas ditolak sebelum mutasi apa pun
	it := stockOf(t, f, "p1")
	assert.Equal(t, 10, it.AvailableStock)
	assert.Empty(t, f.intents.pendingOps())
}

func TestCreateOrderPricesFromCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	in := baseInput()
	in.Items = []CreateItemInput{
		{ProductID: "p1", StoreID: "s1", Qty: 4},
		{ProductID: "p2", StoreID: "s1", Qty: 2},
	}
	o, err := f.eng.CreateOrder(ctx, tenant, in)
	require.NoError(t, err)

	require.Len(t, o.Items, 2)
	assert.Equal(t, "SKU-1", o.Items[0].SKU)
	assert.Equal(t, int64(40_000), o.Items[0].TotalCents)
	assert.Equal(t, int64(6_000), o.Items[1].TotalCents)
	assert.Equal(t, int64(46_000), o.TotalCents)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, orders.PaymentStatusPending, o.PaymentStatus)
	assert.NotEmpty(t, o.Number)

	// reserve jalan per baris
	assert.Equal(t, 6, stockOf(t, f, "p1").AvailableStock)
	assert.Equal(t, 18, stockOf(t, f, "p2").AvailableStock)
	assert.Equal(t, 10, stockOf(t, f, "p1").CurrentStock)
	assert.Empty(t, f.intents.pendingOps())
}

func TestCreateOrderCreditEligibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// limit 100.000: order 80.000 lolos
	in := baseInput()
	in.PaymentType = orders.PaymentCredit
	in.Items = []CreateItemInput{{ProductID: "p1", StoreID: "s1", Qty: 8}}
	o, err := f.eng.CreateOrder(ctx, tenant, in)
	require.NoError(t, err)
	assert.Equal(t, int64(80_000), o.TotalCents)

	head, err := f.credit.Headroom(ctx, tenant, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), head)

	// order kredit 30.000 berikutnya ditolak, creditUsed tidak berubah
	in2 := baseInput()
	in2.PaymentType = orders.PaymentCredit
	in2.Items = []CreateItemInput{{ProductID: "p2", StoreID: "s1", Qty: 10}}
	_, err = f.eng.CreateOrder(ctx, tenant, in2)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "insufficient credit")

	head, err = f.credit.Headroom(ctx, tenant, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), head)
	assert.Len(t, f.credit.Transactions(tenant, "c1"), 1)

	// cash tidak pernah menyentuh ledger kredit
	_, err = f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)
	assert.Len(t, f.credit.Transactions(tenant, "c1"), 1)
}

func TestCreateOrderSurvivesStockFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.eng.Stock = failingStock{}

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)

	got, err := f.store.Get(ctx, tenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)

	// intent reserve tertinggal pending utk di-replay reconciler
	assert.Equal(t, []string{OpReserve}, f.intents.pendingOps())
}

func TestApproveOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)
	require.Equal(t, 6, stockOf(t, f, "p1").AvailableStock)

	got, err := f.eng.ApproveOrder(ctx, tenant, o.ID, "boss")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusApproved, got.Status)
	assert.Equal(t, "boss", got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)

	// deduct konsumsi reservation: available tetap, current turun
	it := stockOf(t, f, "p1")
	assert.Equal(t, 6, it.AvailableStock)
	assert.Equal(t, 6, it.CurrentStock)
}

func TestApprovePreconditionsLeaveStockUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	seed := func(id string, mut func(o *orders.Order)) string {
		o := &orders.Order{
			ID: id, TenantID: tenant,
			Number: "ORD-000001", Customer: orders.CustomerRef{ID: "c1"},
			Packer: orders.PackerRef{ID: "packer"}, Status: orders.StatusPending,
			PaymentType: orders.PaymentCash, DeliveryMethod: orders.DeliveryLocal,
			DeliveryAddress: "Market St 1",
			Items:           []orders.OrderItem{{ProductID: "p1", StoreID: "s1", Qty: 2}},
		}
		mut(o)
		require.NoError(t, f.store.Create(ctx, tenant, o))
		return o.ID
	}

	cases := []struct {
		name string
		mut  func(o *orders.Order)
	}{
		{"no packer", func(o *orders.Order) { o.Packer = orders.PackerRef{} }},
		{"no delivery method", func(o *orders.Order) { o.DeliveryMethod = "" }},
		{"no delivery address", func(o *orders.Order) { o.DeliveryAddress = "" }},
		{"already cancelled", func(o *orders.Order) { o.Status = orders.StatusCancelled }},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := seed(fmt.Sprintf("o-%d", i), tc.mut)
			_, err := f.eng.ApproveOrder(ctx, tenant, id, "boss")
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)

			it := stockOf(t, f, "p1")
			assert.Equal(t, 10, it.AvailableStock)
			assert.Equal(t, 10, it.CurrentStock)
		})
	}
}

func TestPermissionDeniedBlocksMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)

	_, err = f.eng.ApproveOrder(ctx, tenant, o.ID, "clerk")
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = f.eng.UpdateOrderStatus(ctx, tenant, o.ID, orders.StatusCancelled, "clerk")
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	err = f.eng.DeleteOrder(ctx, tenant, o.ID, "clerk")
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	got, err := f.store.Get(ctx, tenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
	assert.Equal(t, 6, stockOf(t, f, "p1").AvailableStock) // cuma reserve awal
}

// Siklus penuh: create -> approve -> cancel mengembalikan stok persis ke awal.
func TestCreateApproveCancelRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)
	it := stockOf(t, f, "p1")
	require.Equal(t, 6, it.AvailableStock)
	require.Equal(t, 10, it.CurrentStock)

	_, err = f.eng.ApproveOrder(ctx, tenant, o.ID, "boss")
	require.NoError(t, err)
	it = stockOf(t, f, "p1")
	require.Equal(t, 6, it.AvailableStock)
	require.Equal(t, 6, it.CurrentStock)

	got, err := f.eng.UpdateOrderStatus(ctx, tenant, o.ID, orders.StatusCancelled, "boss")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	it = stockOf(t, f, "p1")
	assert.Equal(t, 10, it.AvailableStock)
	assert.Equal(t, 10, it.CurrentStock)

	// status terminal: tidak ada transisi lanjutan
	_, err = f.eng.UpdateOrderStatus(ctx, tenant, o.ID, orders.StatusApproved, "boss")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestUpdateOrderStatusRejectsIllegalTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)

	_, err = f.eng.UpdateOrderStatus(ctx, tenant, o.ID, orders.StatusDelivered, "boss")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = f.eng.UpdateOrderStatus(ctx, tenant, o.ID, "limbo", "boss")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	got, err := f.store.Get(ctx, tenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, got.Status)
}

// Cancel order kredit harus membalikkan invoice-nya, sama seperti delete.
func TestCancelCreditOrderRefundsInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	in := baseInput()
	in.PaymentType = orders.PaymentCredit
	in.Items = []CreateItemInput{{ProductID: "p1", StoreID: "s1", Qty: 8}}
	o, err := f.eng.CreateOrder(ctx, tenant, in)
	require.NoError(t, err)

	head, err := f.credit.Headroom(ctx, tenant, "c1")
	require.NoError(t, err)
	require.Equal(t, int64(20_000), head)

	got, err := f.eng.UpdateOrderStatus(ctx, tenant, o.ID, orders.StatusCancelled, "boss")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)

	head, err = f.credit.Headroom(ctx, tenant, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), head)

	// stok juga balik ke awal
	it := stockOf(t, f, "p1")
	assert.Equal(t, 10, it.AvailableStock)
	assert.Equal(t, 10, it.CurrentStock)

	// delete setelah cancel: refund kedua di-skip (reference sama)
	require.NoError(t, f.eng.DeleteOrder(ctx, tenant, o.ID, "boss"))
	head, err = f.credit.Headroom(ctx, tenant, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), head)
	assert.Len(t, f.credit.Transactions(tenant, "c1"), 2) // invoice + satu refund
}

func TestCancelCashOrderLeavesCreditAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)

	_, err = f.eng.UpdateOrderStatus(ctx, tenant, o.ID, orders.StatusCancelled, "boss")
	require.NoError(t, err)
	assert.Empty(t, f.credit.Transactions(tenant, "c1"))
}

func TestDeleteCreditOrderRefundsAndRestores(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	in := baseInput()
	in.PaymentType = orders.PaymentCredit
	in.Items = []CreateItemInput{{ProductID: "p1", StoreID: "s1", Qty: 8}}
	o, err := f.eng.CreateOrder(ctx, tenant, in)
	require.NoError(t, err)

	head, err := f.credit.Headroom(ctx, tenant, "c1")
	require.NoError(t, err)
	require.Equal(t, int64(20_000), head)
	require.Equal(t, 2, stockOf(t, f, "p1").AvailableStock)

	require.NoError(t, f.eng.DeleteOrder(ctx, tenant, o.ID, "boss"))

	_, err = f.store.Get(ctx, tenant, o.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)

	it := stockOf(t, f, "p1")
	assert.Equal(t, 10, it.AvailableStock)
	assert.Equal(t, 10, it.CurrentStock)

	head, err = f.credit.Headroom(ctx, tenant, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), head)
	assert.Len(t, f.credit.Transactions(tenant, "c1"), 2) // invoice + refund
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)

	got, err := f.eng.UpdatePaymentStatus(ctx, tenant, o.ID, orders.PaymentStatusPaid, "boss")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentStatusPaid, got.PaymentStatus)

	_, err = f.eng.UpdatePaymentStatus(ctx, tenant, o.ID, "disputed", "boss")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)

	_, err = f.eng.GetOrder(ctx, "tenant-2", o.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}
