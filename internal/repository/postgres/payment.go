package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

const paymentColumns = `id, reservation_id, type, amount_cents, fee_cents, status, session_id, created_on, updated_on, succeeded_on`

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	var session sql.NullString
	var succeeded sql.NullTime
	if err := row.Scan(&p.ID, &p.ReservationID, &p.Type, &p.AmountCents, &p.FeeCents, &p.Status, &session, &p.CreatedOn, &p.UpdatedOn, &succeeded); err != nil {
		return nil, err
	}
	p.SessionID = session.String
	if succeeded.Valid {
		t := succeeded.Time
		p.SucceededOn = &t
	}
	return p, nil
}

func (r *paymentRepository) CreatePending(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.CreatePending", "reservationID", p.ReservationID, "type", p.Type, "amountCents", p.AmountCents)

	now := time.Now()
	query := `INSERT INTO payments (reservation_id, type, amount_cents, fee_cents, status, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	logger.DatabaseCall("INSERT", "payments", "reservationID", p.ReservationID, "type", p.Type)
	err := r.db.QueryRowContext(ctx, query, p.ReservationID, p.Type, p.AmountCents, p.FeeCents, domain.PaymentStatusPending, now, now).Scan(&p.ID)
	logger.DatabaseResult("INSERT", 1, err, "paymentID", p.ID)
	if err != nil {
		err = translate(err, "a "+string(p.Type)+" payment is already in progress")
		logger.ExitMethodWithError("paymentRepository.CreatePending", err, "reservationID", p.ReservationID)
		return err
	}

	p.Status = domain.PaymentStatusPending
	p.CreatedOn = now
	p.UpdatedOn = now
	logger.ExitMethod("paymentRepository.CreatePending", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) AttachSession(ctx context.Context, id int32, sessionID string) error {
	query := `UPDATE payments SET session_id = $1, updated_on = $2 WHERE id = $3 AND status = $4`
	logger.DatabaseCall("UPDATE", "payments", "paymentID", id, "sessionID", sessionID)
	res, err := r.db.ExecContext(ctx, query, sessionID, time.Now(), id, domain.PaymentStatusPending)
	if err != nil {
		return translate(err, "checkout session already recorded")
	}
	return expectOne(res, "payment is no longer pending")
}

func (r *paymentRepository) MarkSucceeded(ctx context.Context, id int32, at time.Time) error {
	query := `UPDATE payments SET status = $1, succeeded_on = $2, updated_on = $2 WHERE id = $3 AND status = $4`
	logger.DatabaseCall("UPDATE", "payments", "paymentID", id, "status", domain.PaymentStatusSucceeded)
	res, err := r.db.ExecContext(ctx, query, domain.PaymentStatusSucceeded, at, id, domain.PaymentStatusPending)
	if err != nil {
		return err
	}
	return expectOne(res, "payment is no longer pending")
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id int32) error {
	query := `UPDATE payments SET status = $1, updated_on = $2 WHERE id = $3 AND status = $4`
	logger.DatabaseCall("UPDATE", "payments", "paymentID", id, "status", domain.PaymentStatusFailed)
	res, err := r.db.ExecContext(ctx, query, domain.PaymentStatusFailed, time.Now(), id, domain.PaymentStatusPending)
	if err != nil {
		return err
	}
	return expectOne(res, "payment is no longer pending")
}

func (r *paymentRepository) GetByID(ctx context.Context, id int32) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	logger.DatabaseCall("SELECT", "payments", "paymentID", id)
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err, "payment not found")
	}
	return p, nil
}

func (r *paymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1`
	logger.DatabaseCall("SELECT", "payments", "sessionID", sessionID)
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		return nil, translate(err, "no payment for session "+sessionID)
	}
	return p, nil
}

func (r *paymentRepository) FindLive(ctx context.Context, reservationID int32, t domain.PaymentType) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 AND type = $2 AND status <> $3`
	logger.DatabaseCall("SELECT", "payments", "reservationID", reservationID, "type", t)
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, reservationID, t, domain.PaymentStatusFailed))
	if err != nil {
		return nil, translate(err, "no live "+string(t)+" payment")
	}
	return p, nil
}

func (r *paymentRepository) ListByReservation(ctx context.Context, reservationID int32) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 ORDER BY created_on, id`
	logger.DatabaseCall("SELECT", "payments", "reservationID", reservationID)
	rows, err := r.db.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
