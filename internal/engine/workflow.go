package engine

import (
	"context"
	"time"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/authz"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
)

// Urutan kanonik sub-flow packer. Step boleh diaktifkan kalau posisinya
// maksimal satu di depan posisi sekarang; mundur di dalam sub-flow boleh,
// kecuali dari handed_to_delivery (hanya maju ke transported) dan
// transported (terminal).
var packerSequence = []orders.Status{
	orders.StatusApproved,
	orders.StatusAccepted,
	orders.StatusPacking,
	orders.StatusDonePacking,
	orders.StatusHandedToDelivery,
	orders.StatusTransported,
}

func packerIndex(s orders.Status) int {
	for i, st := range packerSequence {
		if st == s {
			return i
		}
	}
	return -1
}

func packerGuard(o *orders.Order, target orders.Status) error {
	tgt := packerIndex(target)
	if tgt < 1 {
		return validationf("%q is not a packer workflow step", target)
	}
	cur := packerIndex(o.Status)
	if cur < 0 {
		return validationf("order %s is not in the packer workflow (status %s)", o.Number, o.Status)
	}
	if o.Status == orders.StatusTransported {
		return validationf("order %s is already transported", o.Number)
	}
	if o.Status == orders.StatusHandedToDelivery && target != orders.StatusTransported {
		return validationf("illegal transition %s -> %s: handed_to_delivery can only advance to transported", o.Status, target)
	}
	if tgt > cur+1 {
		return validationf("illegal transition %s -> %s: step out of sequence", o.Status, target)
	}
	return nil
}

// packerPayloadGuard side-payload wajib per metode pengiriman:
// local_delivery butuh transporter lengkap sebelum hand-off; transported
// hanya utk cargo_delivery dan butuh cargo receipt lengkap. Pickup lewat
// langsung (barang diserahkan ke customer).
func packerPayloadGuard(o *orders.Order, target orders.Status) error {
	switch target {
	case orders.StatusHandedToDelivery:
		if o.DeliveryMethod == orders.DeliveryLocal {
			t := o.Transporter
			if t == nil || t.Name == "" || t.Phone == "" || t.VehicleNumber == "" {
				return validationf("local delivery hand-off requires transporter name, phone and vehicle number")
			}
		}
	case orders.StatusTransported:
		if o.DeliveryMethod != orders.DeliveryCargo {
			return validationf("transport completion applies only to cargo delivery")
		}
		c := o.CargoReceipt
		if c == nil || c.ReceiptNumber == "" || c.TransporterName == "" || c.TransporterPhone == "" || c.ImageRef == "" {
			return validationf("cargo receipt (number, transporter name, phone, image) is required before transported")
		}
	}
	return nil
}

// UpdatePackerStatus satu langkah sub-flow packer; tiap advance stempel
// preparedBy/preparedAt dgn user yang bertindak.
func (e *Engine) UpdatePackerStatus(ctx context.Context, tenantID, orderID string, target orders.Status, actorID string) (*orders.Order, error) {
	if err := e.requirePermission(ctx, tenantID, actorID, authz.PermPrepareOrders); err != nil {
		return nil, err
	}
	o, err := e.Orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := packerGuard(o, target); err != nil {
		return nil, err
	}
	if err := packerPayloadGuard(o, target); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := e.Orders.SetPackerState(ctx, tenantID, orderID, target, actorID, now); err != nil {
		return nil, err
	}
	from := o.Status
	o.Status = target
	o.PreparedBy = actorID
	o.PreparedAt = &now

	e.publish(orders.TopicPackerStatus, orders.EventPackerStatusMoved, o.ID, orders.PackerStatusPayload{
		OrderRef:   orders.OrderRef{TenantID: tenantID, OrderID: o.ID},
		FromStatus: from,
		ToStatus:   target,
		PreparedBy: actorID,
	})
	return o, nil
}

// UpdateTransporterDetails dipanggil sebelum hand-off local delivery.
// Nomor kendaraan opsional utk pickup.
func (e *Engine) UpdateTransporterDetails(ctx context.Context, tenantID, orderID string, t orders.TransporterDetails, actorID string) (*orders.Order, error) {
	if err := e.requirePermission(ctx, tenantID, actorID, authz.PermPrepareOrders); err != nil {
		return nil, err
	}
	o, err := e.Orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if t.Name == "" || t.Phone == "" {
		return nil, validationf("transporter name and phone are required")
	}
	if o.DeliveryMethod != orders.DeliveryCustomerPickup && t.VehicleNumber == "" {
		return nil, validationf("vehicle number is required for %s", o.DeliveryMethod)
	}
	if err := e.Orders.SetTransporter(ctx, tenantID, orderID, t); err != nil {
		return nil, err
	}
	cp := t
	o.Transporter = &cp
	return o, nil
}

// UpdateCargoReceipt resi kargo wajib lengkap; hanya utk cargo_delivery.
func (e *Engine) UpdateCargoReceipt(ctx context.Context, tenantID, orderID string, c orders.CargoReceipt, actorID string) (*orders.Order, error) {
	if err := e.requirePermission(ctx, tenantID, actorID, authz.PermPrepareOrders); err != nil {
		return nil, err
	}
	o, err := e.Orders.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if o.DeliveryMethod != orders.DeliveryCargo {
		return nil, validationf("cargo receipt applies only to cargo delivery")
	}
	if c.ReceiptNumber == "" || c.TransporterName == "" || c.TransporterPhone == "" || c.ImageRef == "" {
		return nil, validationf("cargo receipt requires receipt number, transporter name, phone and image reference")
	}
	if err := e.Orders.SetCargoReceipt(ctx, tenantID, orderID, c); err != nil {
		return nil, err
	}
	cp := c
	o.CargoReceipt = &cp
	return o, nil
}
