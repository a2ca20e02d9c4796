package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/ElisaKikota/Business-Management-System-sub000/internal/authz"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/catalog"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/credit"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/engine"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/orders"
	"github.com/ElisaKikota/Business-Management-System-sub000/internal/redisx"
)

type OrdersHandler struct {
	Engine   *engine.Engine
	Repo     *orders.Repo
	Catalog  *catalog.PgCatalog
	Redis    *redis.Client
	Validate *validator.Validate
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Post("/orders/{id}/approve", h.approveOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Patch("/orders/{id}/packer-status", h.updatePackerStatus)
	r.Put("/orders/{id}/transporter", h.updateTransporter)
	r.Put("/orders/{id}/cargo-receipt", h.updateCargoReceipt)
	r.Patch("/orders/{id}/payment-status", h.updatePaymentStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Get("/products", h.listProducts)
}

type customerReq struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type packerReq struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type createItemReq struct {
	ProductID string `json:"product_id" validate:"required"`
	StoreID   string `json:"store_id" validate:"required"`
	Qty       int    `json:"qty" validate:"gt=0"`
}

type createOrderReq struct {
	ExternalRef     string          `json:"external_ref"`
	Customer        customerReq     `json:"customer" validate:"required"`
	Packer          packerReq       `json:"packer" validate:"required"`
	PaymentType     string          `json:"payment_type" validate:"required"`
	DeliveryMethod  string          `json:"delivery_method" validate:"required"`
	DeliveryAddress string          `json:"delivery_address"`
	Items           []createItemReq `json:"items" validate:"required,min=1,dive"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, authz.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrStoreNotFound),
		errors.Is(err, credit.ErrCustomerNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// identity dari header; autentikasi sendiri di luar scope service ini.
func identity(w http.ResponseWriter, r *http.Request) (tenantID, userID string, ok bool) {
	tenantID = r.Header.Get("X-Tenant-ID")
	userID = r.Header.Get("X-User-ID")
	if tenantID == "" || userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Tenant-ID and X-User-ID headers are required"})
		return "", "", false
	}
	return tenantID, userID, true
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.TenantID, o.ID)
	b, _ := json.Marshal(map[string]any{"status": o.Status, "payment_status": o.PaymentStatus})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis; DB tetap jadi kebenaran.
	if req.ExternalRef != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, tenantID, req.ExternalRef)
		if id, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && id != "" {
			if o, err := h.Engine.GetOrder(ctx, tenantID, id); err == nil {
				writeJSON(w, http.StatusOK, o)
				return
			}
		}
		if id, found, err := h.Repo.FindByExternalRef(ctx, tenantID, req.ExternalRef); err == nil && found {
			if o, err := h.Engine.GetOrder(ctx, tenantID, id); err == nil {
				writeJSON(w, http.StatusOK, o)
				return
			}
		}
	}

	in := engine.CreateOrderInput{
		ActorID:         userID,
		ExternalRef:     req.ExternalRef,
		Customer:        orders.CustomerRef{ID: req.Customer.ID, Name: req.Customer.Name, Email: req.Customer.Email, Phone: req.Customer.Phone},
		Packer:          orders.PackerRef{ID: req.Packer.ID, Name: req.Packer.Name},
		PaymentType:     orders.PaymentType(req.PaymentType),
		DeliveryMethod:  orders.DeliveryMethod(req.DeliveryMethod),
		DeliveryAddress: req.DeliveryAddress,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, engine.CreateItemInput{ProductID: it.ProductID, StoreID: it.StoreID, Qty: it.Qty})
	}

	o, err := h.Engine.CreateOrder(ctx, tenantID, in)
	if err != nil {
		writeErr(w, err)
		return
	}

	if req.ExternalRef != "" {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, tenantID, req.ExternalRef)
		_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Engine.GetOrder(ctx, tenantID, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache (key scoped per tenant, jangan bocor antar tenant)
	key := fmt.Sprintf(redisx.KeyOrderStatus, tenantID, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	o, err := h.Engine.GetOrder(ctx, tenantID, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{"status": o.Status, "payment_status": o.PaymentStatus})
}

func (h *OrdersHandler) approveOrder(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.ApproveOrder(ctx, tenantID, chi.URLParam(r, "id"), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.UpdateOrderStatus(ctx, tenantID, chi.URLParam(r, "id"), orders.Status(req.Status), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updatePackerStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.UpdatePackerStatus(ctx, tenantID, chi.URLParam(r, "id"), orders.Status(req.Status), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

type transporterReq struct {
	Name          string `json:"name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	VehicleNumber string `json:"vehicle_number"`
}

func (h *OrdersHandler) updateTransporter(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	var req transporterReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.UpdateTransporterDetails(ctx, tenantID, chi.URLParam(r, "id"),
		orders.TransporterDetails{Name: req.Name, Phone: req.Phone, VehicleNumber: req.VehicleNumber}, userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type cargoReceiptReq struct {
	ReceiptNumber    string `json:"receipt_number" validate:"required"`
	TransporterName  string `json:"transporter_name" validate:"required"`
	TransporterPhone string `json:"transporter_phone" validate:"required"`
	ImageRef         string `json:"image_ref" validate:"required"`
}

func (h *OrdersHandler) updateCargoReceipt(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	var req cargoReceiptReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.UpdateCargoReceipt(ctx, tenantID, chi.URLParam(r, "id"), orders.CargoReceipt{
		ReceiptNumber:    req.ReceiptNumber,
		TransporterName:  req.TransporterName,
		TransporterPhone: req.TransporterPhone,
		ImageRef:         req.ImageRef,
	}, userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type paymentStatusReq struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

func (h *OrdersHandler) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	var req paymentStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.UpdatePaymentStatus(ctx, tenantID, chi.URLParam(r, "id"), orders.PaymentStatus(req.PaymentStatus), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Engine.DeleteOrder(ctx, tenantID, orderID, userID); err != nil {
		writeErr(w, err)
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, tenantID, orderID)).Err()
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx, tenantID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
