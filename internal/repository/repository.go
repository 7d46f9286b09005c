package repository

import (
	"context"
	"time"

	"rentdesk-backend/internal/domain"
)

// Every lookup returns an error wrapping domain.ErrNotFound when no row matches.
// Conditional updates return domain.ErrStateConflict when the expected state no
// longer holds.

type TeamRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Team, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, teamID, id int32) (*domain.Customer, error)
}

type VehicleRepository interface {
	GetByID(ctx context.Context, teamID, id int32) (*domain.Vehicle, error)
}

type ReservationRepository interface {
	// GetByID is unscoped; it serves provider callbacks that carry no team context.
	GetByID(ctx context.Context, id int32) (*domain.Reservation, error)
	GetForTeam(ctx context.Context, teamID, id int32) (*domain.Reservation, error)
	GetByMagicToken(ctx context.Context, token string) (*domain.Reservation, error)
	GetByBalanceToken(ctx context.Context, token string) (*domain.Reservation, error)
	// UpdateStatus moves the reservation from one status to the next only if it
	// is still in from.
	UpdateStatus(ctx context.Context, id int32, from, to domain.ReservationStatus) error
	// CheckIn and CheckOut lock the reservation row, apply the transition and
	// flip the vehicle in one transaction.
	CheckIn(ctx context.Context, teamID, id int32, h domain.Handover) (*domain.Reservation, error)
	CheckOut(ctx context.Context, teamID, id int32, h domain.Handover) (*domain.Reservation, error)
}

type PaymentRepository interface {
	// CreatePending inserts a pending row. A second live row of the same type for
	// the same reservation is rejected with domain.ErrStateConflict.
	CreatePending(ctx context.Context, p *domain.Payment) error
	AttachSession(ctx context.Context, id int32, sessionID string) error
	MarkSucceeded(ctx context.Context, id int32, at time.Time) error
	MarkFailed(ctx context.Context, id int32) error
	GetByID(ctx context.Context, id int32) (*domain.Payment, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)
	// FindLive returns the non-failed row of the given type, if any.
	FindLive(ctx context.Context, reservationID int32, t domain.PaymentType) (*domain.Payment, error)
	ListByReservation(ctx context.Context, reservationID int32) ([]domain.Payment, error)
}

type ContractRepository interface {
	Create(ctx context.Context, c *domain.Contract) error
	GetByReservationID(ctx context.Context, reservationID int32) (*domain.Contract, error)
	GetBySignatureRequestID(ctx context.Context, requestID string) (*domain.Contract, error)
	MarkSigned(ctx context.Context, id int32, at time.Time, location string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, teamID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, teamID int32) error
}

type ReminderRepository interface {
	ListDue(ctx context.Context, from, to time.Time) ([]domain.ReminderCandidate, error)
	MarkSent(ctx context.Context, reservationID int32, at time.Time) error
}
