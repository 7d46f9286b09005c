package http

import (
	"io"
	"net/http"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/esign"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/payment"
	"rentdesk-backend/internal/service"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives provider callbacks. A delivery is acknowledged once
// its effect is durable; only verification failures and persistence errors are
// answered with a non-2xx status, the latter so the provider retries.
type WebhookHandler struct {
	gateway         payment.Gateway
	reconciler      service.ReconcilerService
	signatureSecret string
}

func NewWebhookHandler(gateway payment.Gateway, reconciler service.ReconcilerService, signatureSecret string) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, reconciler: reconciler, signatureSecret: signatureSecret}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		return nil, domain.Validationf("read body: %v", err)
	}
	return body, nil
}

func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.gateway.ParseWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.reconciler.HandleStripeEvent(r.Context(), ev); err != nil {
		logger.Error("Stripe webhook not applied", "eventID", ev.ID, "type", ev.Type, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "event not processed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) Signature(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := esign.ParseWebhook(h.signatureSecret, body, r.Header.Get(esign.SignatureHeader))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.reconciler.HandleSignatureEvent(r.Context(), ev); err != nil {
		logger.Error("Signature webhook not applied", "requestID", ev.RequestID, "event", ev.Name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "event not processed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
