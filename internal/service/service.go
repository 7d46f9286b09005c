package service

import (
	"context"
	"io"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/esign"
	"rentdesk-backend/internal/payment"
)

// Every staff-facing operation takes the caller's team id explicitly; lookups
// outside that team report domain.ErrNotFound.

type CheckoutService interface {
	StartInitialCheckout(ctx context.Context, teamID, reservationID int32) (*domain.CheckoutResult, error)
	StartBalanceCheckout(ctx context.Context, teamID, reservationID int32) (*domain.CheckoutResult, error)
}

// PortalService backs the customer pages reached through magic links.
type PortalService interface {
	ViewByMagicToken(ctx context.Context, token string) (*domain.ReservationView, error)
	ViewByBalanceToken(ctx context.Context, token string) (*domain.ReservationView, error)
	CheckoutByMagicToken(ctx context.Context, token string) (*domain.CheckoutResult, error)
	CheckoutByBalanceToken(ctx context.Context, token string) (*domain.CheckoutResult, error)
	ListPayments(ctx context.Context, teamID, reservationID int32) ([]domain.Payment, error)
}

type ReconcilerService interface {
	HandleStripeEvent(ctx context.Context, ev *payment.WebhookEvent) error
	// VerifyCheckoutSession settles a session the customer was redirected back from.
	VerifyCheckoutSession(ctx context.Context, sessionID string) (*domain.SettlementResult, error)
	SettleCheckoutSession(ctx context.Context, session *domain.CheckoutSession) (*domain.SettlementResult, error)
	FailCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error
	HandleSignatureEvent(ctx context.Context, ev *esign.Event) error
}

type ContractService interface {
	GenerateAndSend(ctx context.Context, teamID, reservationID int32) (*domain.Contract, error)
	OpenSignedDocument(ctx context.Context, teamID, reservationID int32) (io.ReadCloser, error)
}

type HandoverService interface {
	CheckIn(ctx context.Context, teamID, reservationID int32, h domain.Handover) (*domain.Reservation, error)
	CheckOut(ctx context.Context, teamID, reservationID int32, h domain.Handover) (*domain.Reservation, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, teamID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, teamID, notificationID int32) error
	// Notify records a feed entry and pushes it to the team's devices. Push
	// failures are logged only.
	Notify(ctx context.Context, teamID int32, title, message string, attrs map[string]string) error
}

type EmailService interface {
	SendPaymentReceipt(ctx context.Context, customer *domain.Customer, teamName string, p *domain.Payment) error
	SendContractSigned(ctx context.Context, customer *domain.Customer, teamName string, reservationID int32) error
	SendReminder(ctx context.Context, c domain.ReminderCandidate) error
}

type PushService interface {
	SendToTeam(ctx context.Context, teamID int32, title, body string, data map[string]string) error
}

// EventPublisher emits lifecycle events after the change is durable. It never
// fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.LifecycleEvent)
}

// Deduper is the fast path for webhook redelivery. Implementations may be
// unavailable; callers fall back to the database, which is idempotent.
type Deduper interface {
	Seen(ctx context.Context, provider, eventID string) (bool, error)
	Mark(ctx context.Context, provider, eventID string) error
}
