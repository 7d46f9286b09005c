// Package payment talks to the card payment gateway: hosted checkout sessions
// with a platform fee split off to a connected payout account, and signed
// webhook deliveries.
package payment

import (
	"context"
	"time"

	"rentdesk-backend/internal/domain"
)

// Webhook event types the reconciler acts on.
const (
	EventSessionCompleted      = "checkout.session.completed"
	EventSessionAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventSessionExpired        = "checkout.session.expired"
	EventSessionAsyncFailed    = "checkout.session.async_payment_failed"
)

// SessionLifetime is how long a hosted checkout stays payable.
const SessionLifetime = time.Hour

// CheckoutRequest describes one hosted checkout. ChargeCents is what the
// customer pays; ApplicationFeeCents stays with the platform and the rest is
// routed to DestinationAccount.
type CheckoutRequest struct {
	PaymentID           int32
	Description         string
	CustomerEmail       string
	Currency            string
	ChargeCents         int64
	ApplicationFeeCents int64
	DestinationAccount  string
	Metadata            map[string]string
	SuccessURL          string
	CancelURL           string
}

// WebhookEvent is a verified gateway delivery. Session is set for checkout
// session events only.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *domain.CheckoutSession
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*domain.CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	// ExpireSession closes an open session. A session that already completed
	// cannot be expired and yields domain.ErrStateConflict.
	ExpireSession(ctx context.Context, sessionID string) error
	ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
