package orders

import "time"

type CustomerRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type PackerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TransporterDetails struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicle_number"`
}

type CargoReceipt struct {
	ReceiptNumber    string `json:"receipt_number"`
	TransporterName  string `json:"transporter_name"`
	TransporterPhone string `json:"transporter_phone"`
	ImageRef         string `json:"image_ref"`
}

type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	StoreID        string `json:"store_id"`
	Name           string `json:"name"` // snapshot saat order dibuat
	SKU            string `json:"sku"`
	Unit           string `json:"unit"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
	TotalCents     int64  `json:"total_cents"`
}

type Order struct {
	ID              string              `json:"id"`
	TenantID        string              `json:"tenant_id"`
	Number          string              `json:"number"`
	ExternalRef     string              `json:"external_ref,omitempty"`
	Customer        CustomerRef         `json:"customer"`
	Items           []OrderItem         `json:"items"`
	Status          Status              `json:"status"`
	PaymentType     PaymentType         `json:"payment_type"`
	PaymentStatus   PaymentStatus       `json:"payment_status"`
	TotalCents      int64               `json:"total_cents"`
	Packer          PackerRef           `json:"packer"`
	DeliveryMethod  DeliveryMethod      `json:"delivery_method"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	Transporter     *TransporterDetails `json:"transporter,omitempty"`
	CargoReceipt    *CargoReceipt       `json:"cargo_receipt,omitempty"`
	CreatedBy       string              `json:"created_by"`
	CreatedAt       time.Time           `json:"created_at"`
	ApprovedBy      string              `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
	PreparedBy      string              `json:"prepared_by,omitempty"`
	PreparedAt      *time.Time          `json:"prepared_at,omitempty"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
