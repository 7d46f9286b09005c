package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentdesk-backend/internal/security"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Public   *PublicHandler
	Webhooks *WebhookHandler
	Staff    *StaffHandler
	Photos   *PhotoHandler
	Cron     *CronHandler
}

// NewRouter mounts all routes under /api/v1. Route names select the security
// level applied by the auth middleware.
func NewRouter(h Handlers, tm security.TokenManager, cronSecret string) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name("health")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(RequestLogger, NewAuthMiddleware(tm, cronSecret).Handler)

	// Customer portal
	api.HandleFunc("/public/reservations/{token}", h.Public.ViewReservation).Methods(http.MethodGet).Name("public.reservation.view")
	api.HandleFunc("/public/reservations/{token}/checkout", h.Public.StartCheckout).Methods(http.MethodPost).Name("public.reservation.checkout")
	api.HandleFunc("/public/balance/{token}", h.Public.ViewBalance).Methods(http.MethodGet).Name("public.balance.view")
	api.HandleFunc("/public/balance/{token}/checkout", h.Public.StartBalanceCheckout).Methods(http.MethodPost).Name("public.balance.checkout")
	api.HandleFunc("/public/checkout/success", h.Public.CheckoutSuccess).Methods(http.MethodGet).Name("public.checkout.success")
	api.HandleFunc("/public/checkout/cancel", h.Public.CheckoutCancel).Methods(http.MethodGet).Name("public.checkout.cancel")

	// Provider callbacks
	api.HandleFunc("/webhooks/stripe", h.Webhooks.Stripe).Methods(http.MethodPost).Name("webhook.stripe")
	api.HandleFunc("/webhooks/signature", h.Webhooks.Signature).Methods(http.MethodPost).Name("webhook.signature")

	// Scheduled trigger
	api.HandleFunc("/cron/reminders", h.Cron.SendReminders).Methods(http.MethodPost).Name("cron.reminders")

	// Staff
	api.HandleFunc("/reservations/{id:[0-9]+}/checkin", h.Staff.CheckIn).Methods(http.MethodPost).Name("staff.reservation.checkin")
	api.HandleFunc("/reservations/{id:[0-9]+}/checkout", h.Staff.CheckOut).Methods(http.MethodPost).Name("staff.reservation.checkout")
	api.HandleFunc("/reservations/{id:[0-9]+}/contract", h.Staff.SendContract).Methods(http.MethodPost).Name("staff.contract.send")
	api.HandleFunc("/reservations/{id:[0-9]+}/contract/document", h.Staff.ContractDocument).Methods(http.MethodGet).Name("staff.contract.document")
	api.HandleFunc("/reservations/{id:[0-9]+}/payments", h.Staff.ListPayments).Methods(http.MethodGet).Name("staff.payments.list")
	api.HandleFunc("/reservations/{id:[0-9]+}/photos", h.Photos.Upload).Methods(http.MethodPut).Name("staff.photos.upload")
	api.HandleFunc("/reservations/{id:[0-9]+}/photos/{name}", h.Photos.Download).Methods(http.MethodGet).Name("staff.photos.download")
	api.HandleFunc("/notifications", h.Staff.ListNotifications).Methods(http.MethodGet).Name("staff.notifications.list")
	api.HandleFunc("/notifications/{id:[0-9]+}/read", h.Staff.MarkNotificationRead).Methods(http.MethodPost).Name("staff.notifications.read")

	return router
}
