package stock

import (
	"errors"
	"fmt"
	"time"
)

var ErrItemNotFound = errors.New("stock item not found")

// Line satu baris order yang dikenakan ke ledger stok.
type Line struct {
	ProductID string
	StoreID   string
	Qty       int
}

// Item counter stok per (product, store). available disimpan eksplisit dan
// wajib tetap sinkron: 0 <= available <= current.
type Item struct {
	ProductID      string    `json:"product_id"`
	StoreID        string    `json:"store_id"`
	CurrentStock   int       `json:"current_stock"`
	ReservedStock  int       `json:"reserved_stock"`
	AvailableStock int       `json:"available_stock"`
	LastUpdated    time.Time `json:"last_updated"`
}

type ReservationStatus string

const (
	ReservationReserved ReservationStatus = "RESERVED"
	ReservationConsumed ReservationStatus = "CONSUMED"
	ReservationReleased ReservationStatus = "RELEASED"
)

// Reservation mencatat delta yang benar-benar terpotong, supaya restore
// membalikkan persis operasi sebelumnya dan restore kedua jadi no-op.
type Reservation struct {
	OrderID        string
	ProductID      string
	StoreID        string
	Qty            int
	AvailableDelta int
	CurrentDelta   int
	Status         ReservationStatus
}

// applyReserve: available -= qty (floor 0), tanpa menyentuh current.
// Return berapa yang benar-benar terpotong.
func applyReserve(it *Item, qty int) int {
	d := min(qty, it.AvailableStock)
	it.AvailableStock -= d
	it.ReservedStock += d
	return d
}

// applyDeductConsume: konsumsi fisik atas reservation RESERVED yang sudah ada.
// available sudah dipotong saat reserve, jadi di sini hanya current.
func applyDeductConsume(it *Item, res *Reservation, qty int) {
	d := min(qty, it.CurrentStock)
	it.CurrentStock -= d
	it.ReservedStock -= min(res.AvailableDelta, it.ReservedStock)
	res.CurrentDelta = d
	res.Status = ReservationConsumed
}

// applyDeductFresh: deduct tanpa reserve sebelumnya (reserve-nya hilang):
// potong available dan current sekaligus, dua-duanya floor 0.
func applyDeductFresh(it *Item, qty int) (availDelta, curDelta int) {
	a := min(qty, it.AvailableStock)
	c := min(qty, it.CurrentStock)
	it.AvailableStock -= a
	it.CurrentStock -= c
	return a, c
}

// applyRestore membalikkan delta yang tercatat, sekali saja.
func applyRestore(it *Item, res *Reservation) {
	switch res.Status {
	case ReservationReserved:
		it.AvailableStock += res.AvailableDelta
		it.ReservedStock -= min(res.AvailableDelta, it.ReservedStock)
	case ReservationConsumed:
		it.AvailableStock += res.AvailableDelta
		it.CurrentStock += res.CurrentDelta
	case ReservationReleased:
		return
	}
	res.Status = ReservationReleased
}

func itemKey(tenantID, productID, storeID string) string {
	return fmt.Sprintf("%s/%s/%s", tenantID, productID, storeID)
}

func resKey(tenantID, orderID, productID, storeID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", tenantID, orderID, productID, storeID)
}
