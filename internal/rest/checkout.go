package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/finbridge/binancepay-gateway/internal/domain"
	"github.com/finbridge/binancepay-gateway/internal/money"
	"github.com/finbridge/binancepay-gateway/internal/services"
)

type checkoutRequest struct {
	OrderID   string  `json:"orderId"`
	OrderRef  string  `json:"orderRef"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	ReturnURL string  `json:"returnUrl"`
	CancelURL string  `json:"cancelUrl"`
}

type checkoutResponse struct {
	Success     bool    `json:"success"`
	PrepayID    string  `json:"prepayId"`
	CheckoutURL string  `json:"checkoutUrl"`
	Coin        string  `json:"coin"`
	CoinAmount  string  `json:"coinAmount"`
	Rate        float64 `json:"rate"`
}

// CreateCheckout creates a processor order for the given merchant order and
// returns the checkout redirect URL.
func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" || req.OrderRef == "" || req.Currency == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "orderId, orderRef, currency and a positive amount are required")
		return
	}

	res, err := h.checkout.CreateOrder(r.Context(), services.CheckoutCommand{
		OrderID:   req.OrderID,
		OrderRef:  req.OrderRef,
		Amount:    req.Amount,
		Currency:  req.Currency,
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		h.logger.Error("checkout failed", "order_id", req.OrderID, "error", err)
		if errors.Is(err, money.ErrInvalidNumber) {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		if domain.IsErrorCode(err, domain.ErrCodeOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		// Generic failure: the customer retries, details stay in the logs.
		writeError(w, http.StatusBadGateway, "could not create payment, please try again")
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Success:     true,
		PrepayID:    res.PrepayID,
		CheckoutURL: res.CheckoutURL,
		Coin:        res.Coin,
		CoinAmount:  res.CoinAmount,
		Rate:        res.Rate,
	})
}
