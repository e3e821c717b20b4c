// Package rest exposes the gateway's HTTP surface: the webhook endpoint, the
// checkout endpoint, order status and certificate refresh.
package rest

import (
	"log/slog"
	"net/http"

	"github.com/finbridge/binancepay-gateway/internal/domain"
	"github.com/finbridge/binancepay-gateway/internal/services"
)

type Handlers struct {
	checkout  *services.CheckoutService
	reconcile *services.ReconcileService
	certs     *services.CertificateManager
	orders    domain.OrderStore
	logger    *slog.Logger
}

func NewHandlers(
	checkout *services.CheckoutService,
	reconcile *services.ReconcileService,
	certs *services.CertificateManager,
	orders domain.OrderStore,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkout:  checkout,
		reconcile: reconcile,
		certs:     certs,
		orders:    orders,
		logger:    logger,
	}
}

// Routes registers all handlers on the mux.
func (h *Handlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/orders", h.RegisterOrder)
	mux.HandleFunc("POST /api/v1/checkout", h.CreateCheckout)
	mux.HandleFunc("GET /api/v1/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/v1/certificate/refresh", h.RefreshCertificate)
	mux.HandleFunc("POST /webhooks/binancepay", h.Webhook)
}
