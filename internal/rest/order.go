package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/finbridge/binancepay-gateway/internal/domain"
)

type registerOrderRequest struct {
	ID       string  `json:"id"`
	Ref      string  `json:"ref"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// RegisterOrder records a merchant order so a checkout can later attach
// processor handles to it. Registration is not checkout: the order starts
// Pending with no processor state.
func (h *Handlers) RegisterOrder(w http.ResponseWriter, r *http.Request) {
	var req registerOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.Ref == "" || req.Currency == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "id, ref, currency and a positive amount are required")
		return
	}

	order := &domain.Order{
		ID:       req.ID,
		Ref:      req.Ref,
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   domain.StatusPending,
	}
	if err := h.orders.Create(r.Context(), order); err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeOrderExists) {
			writeError(w, http.StatusConflict, "order already registered")
			return
		}
		h.logger.Error("order registration failed", "order_id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, orderResponse{
		Success:  true,
		ID:       order.ID,
		Ref:      order.Ref,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   string(order.Status),
		Metadata: order.Metadata,
		Updated:  order.UpdatedAt,
	})
}

type orderResponse struct {
	Success  bool              `json:"success"`
	ID       string            `json:"id"`
	Ref      string            `json:"ref"`
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
	Notes    []string          `json:"notes,omitempty"`
	Updated  time.Time         `json:"updatedAt"`
}

// GetOrder returns the order's current state. Viewing an order triggers a
// best-effort poll of the processor; poll failures are logged, never
// surfaced, since webhooks remain the authoritative path.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.reconcile.Poll(r.Context(), id); err != nil {
		h.logger.Warn("order poll failed", "order_id", id, "error", err)
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("order lookup failed", "order_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Success:  true,
		ID:       o.ID,
		Ref:      o.Ref,
		Amount:   o.Amount,
		Currency: o.Currency,
		Status:   string(o.Status),
		Metadata: o.Metadata,
		Notes:    o.Notes,
		Updated:  o.UpdatedAt,
	})
}

type certificateResponse struct {
	Success bool   `json:"success"`
	Serial  string `json:"serial"`
}

// RefreshCertificate fetches the processor's current signing certificate and
// replaces the stored one. The settings-save hook of the original gateway,
// exposed as an explicit admin endpoint.
func (h *Handlers) RefreshCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.certs.Refresh(r.Context())
	if err != nil {
		h.logger.Error("certificate refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not fetch certificate")
		return
	}
	writeJSON(w, http.StatusOK, certificateResponse{Success: true, Serial: cert.Serial})
}
