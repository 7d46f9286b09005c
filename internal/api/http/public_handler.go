package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentdesk-backend/internal/service"
)

// PublicHandler serves the customer portal reached through magic links.
type PublicHandler struct {
	portal     service.PortalService
	reconciler service.ReconcilerService
}

func NewPublicHandler(portal service.PortalService, reconciler service.ReconcilerService) *PublicHandler {
	return &PublicHandler{portal: portal, reconciler: reconciler}
}

func (h *PublicHandler) ViewReservation(w http.ResponseWriter, r *http.Request) {
	view, err := h.portal.ViewByMagicToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PublicHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	result, err := h.portal.CheckoutByMagicToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PublicHandler) ViewBalance(w http.ResponseWriter, r *http.Request) {
	view, err := h.portal.ViewByBalanceToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *PublicHandler) StartBalanceCheckout(w http.ResponseWriter, r *http.Request) {
	result, err := h.portal.CheckoutByBalanceToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CheckoutSuccess settles the session the customer was redirected back from,
// so the page is correct even before the gateway's webhook arrives.
func (h *PublicHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.VerifyCheckoutSession(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PublicHandler) CheckoutCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"acknowledged":   true,
		"reservation_id": r.URL.Query().Get("reservation_id"),
	})
}
