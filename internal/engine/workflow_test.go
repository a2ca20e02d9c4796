package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/authz"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
)

// approvedOrder buat order sampai status approved dgn metode pengiriman tertentu.
func approvedOrder(t *testing.T, f *fixture, method orders.DeliveryMethod) *orders.Order {
	t.Helper()
	ctx := context.Background()
	in := baseInput()
	in.DeliveryMethod = method
	if method != orders.DeliveryCustomerPickup {
		in.DeliveryAddress = "Market St 1"
	}
	o, err := f.eng.CreateOrder(ctx, tenant, in)
	require.NoError(t, err)
	o, err = f.eng.ApproveOrder(ctx, tenant, o.ID, "boss")
	require.NoError(t, err)
	return o
}

func TestPackerHappyPathPickup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	o := approvedOrder(t, f, orders.DeliveryCustomerPickup)

	for _, next := range []orders.Status{
		orders.StatusAccepted,
		orders.StatusPacking,
		orders.StatusDonePacking,
		orders.StatusHandedToDelivery,
	} {
		got, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, next, "packer")
		require.NoError(t, err, "advance to %s", next)
		assert.Equal(t, next, got.Status)
		assert.Equal(t, "packer", got.PreparedBy)
		require.NotNil(t, got.PreparedAt)
	}

	// pickup bukan cargo: transported ditolak
	_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusTransported, "packer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "cargo")
}

func TestPackerSequenceGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	o := approvedOrder(t, f, orders.DeliveryCustomerPickup)

	// lompat dua langkah ditolak
	_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusPacking, "packer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of sequence")

	// approved bukan target yang sah (posisi 0)
	_, err = f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusApproved, "packer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// status di luar sub-flow juga bukan target
	_, err = f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusDelivered, "packer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// maju dua langkah beneran lalu mundur satu: boleh
	_, err = f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusAccepted, "packer")
	require.NoError(t, err)
	_, err = f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusPacking, "packer")
	require.NoError(t, err)
	got, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusAccepted, "packer")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAccepted, got.Status)
}

func TestPackerRejectsOrderOutsideWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	o, err := f.eng.CreateOrder(ctx, tenant, baseInput())
	require.NoError(t, err)

	// masih pending, sub-flow packer belum mulai
	_, err = f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusAccepted, "packer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "not in the packer workflow")
}

func TestHandedToDeliveryOnlyAdvancesToTransported(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	o := approvedOrder(t, f, orders.DeliveryCustomerPickup)

	for _, next := range []orders.Status{
		orders.StatusAccepted, orders.StatusPacking,
		orders.StatusDonePacking, orders.StatusHandedToDelivery,
	} {
		_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, next, "packer")
		require.NoError(t, err)
	}

	// dari handed_to_delivery tidak boleh mundur
	_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusPacking, "packer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handed_to_delivery")
}

func TestLocalDeliveryHandOffRequiresTransporter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	o := approvedOrder(t, f, orders.DeliveryLocal)

	for _, next := range []orders.Status{
		orders.StatusAccepted, orders.StatusPacking, orders.StatusDonePacking,
	} {
		_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, next, "packer")
		require.NoError(t, err)
	}

	// belum ada transporter -> hand-off ditolak
	_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusHandedToDelivery, "packer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transporter")

	// transporter tanpa nomor kendaraan juga ditolak utk local delivery
	_, err = f.eng.UpdateTransporterDetails(ctx, tenant, o.ID,
		orders.TransporterDetails{Name: "Bodaboda", Phone: "0712"}, "packer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vehicle")

	_, err = f.eng.UpdateTransporterDetails(ctx, tenant, o.ID,
		orders.TransporterDetails{Name: "Bodaboda", Phone: "0712", VehicleNumber: "T 123 ABC"}, "packer")
	require.NoError(t, err)

	got, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusHandedToDelivery, "packer")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusHandedToDelivery, got.Status)
}

func TestCargoReceiptRequiredBeforeTransported(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	o := approvedOrder(t, f, orders.DeliveryCargo)

	for _, next := range []orders.Status{
		orders.StatusAccepted, orders.StatusPacking,
		orders.StatusDonePacking, orders.StatusHandedToDelivery,
	} {
		_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, next, "packer")
		require.NoError(t, err)
	}

	_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusTransported, "packer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cargo receipt")

	// resi tidak lengkap ditolak
	_, err = f.eng.UpdateCargoReceipt(ctx, tenant, o.ID, orders.CargoReceipt{
		ReceiptNumber: "R-1", TransporterName: "Scandinavia",
	}, "packer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = f.eng.UpdateCargoReceipt(ctx, tenant, o.ID, orders.CargoReceipt{
		ReceiptNumber: "R-1", TransporterName: "Scandinavia",
		TransporterPhone: "0713", ImageRef: "receipts/r1.jpg",
	}, "packer")
	require.NoError(t, err)

	got, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusTransported, "packer")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusTransported, got.Status)

	// transported terkunci
	_, err = f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusHandedToDelivery, "packer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already transported")
}

func TestCargoReceiptOnlyForCargoDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	o := approvedOrder(t, f, orders.DeliveryLocal)

	_, err := f.eng.UpdateCargoReceipt(ctx, tenant, o.ID, orders.CargoReceipt{
		ReceiptNumber: "R-1", TransporterName: "X", TransporterPhone: "0713", ImageRef: "r.jpg",
	}, "packer")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "cargo delivery")
}

func TestPackerWorkflowNeedsPreparePermission(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	o := approvedOrder(t, f, orders.DeliveryCustomerPickup)

	// boss punya approve/manage tapi bukan prepare
	_, err := f.eng.UpdatePackerStatus(ctx, tenant, o.ID, orders.StatusAccepted, "boss")
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = f.eng.UpdateTransporterDetails(ctx, tenant, o.ID,
		orders.TransporterDetails{Name: "X", Phone: "0712", VehicleNumber: "T 1"}, "boss")
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	got, err := f.store.Get(ctx, tenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusApproved, got.Status)
}
