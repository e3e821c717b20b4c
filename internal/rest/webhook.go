package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/finbridge/binancepay-gateway/internal/domain"
	"github.com/finbridge/binancepay-gateway/internal/services"
	"github.com/finbridge/binancepay-gateway/internal/webhook"
)

const maxWebhookBody = 1 << 20

// Webhook accepts processor notifications. Verification failures all get the
// same response, so a probing sender cannot tell which check rejected it.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "invalid webhook request")
		return
	}

	cert, err := h.certs.Current(r.Context())
	if err != nil {
		h.logger.Error("loading webhook certificate failed", "error", err)
		writeError(w, http.StatusUnauthorized, "webhook validation failed")
		return
	}

	if !webhook.Verify(r.Header, body, cert) {
		h.logger.Warn("webhook verification failed", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "webhook validation failed")
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if event.PrepayID() == "" {
		writeError(w, http.StatusBadRequest, "no bizId provided")
		return
	}

	if err := h.reconcile.HandleWebhook(r.Context(), &event); err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeOrderNotFound) {
			writeError(w, http.StatusNotFound, "no order found for this bizId")
			return
		}
		h.logger.Error("webhook processing failed", "biz_id", event.PrepayID(), "error", err)
		writeError(w, http.StatusBadRequest, "webhook processing failed")
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
