package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

type reminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

// ListDue returns paid or confirmed reservations starting in [from, to) that
// have not been reminded yet. BalanceDue is set for deposit plans whose balance
// has not been collected.
func (r *reminderRepository) ListDue(ctx context.Context, from, to time.Time) ([]domain.ReminderCandidate, error) {
	query := `SELECT r.id AS reservation_id, r.team_id, t.name AS team_name,
	                 c.email AS customer_email, c.first_name AS customer_first_name,
	                 v.name AS vehicle_name, r.start_date, r.magic_token, r.balance_token,
	                 (r.deposit_amount_cents IS NOT NULL AND r.deposit_amount_cents > 0 AND NOT EXISTS (
	                     SELECT 1 FROM payments p
	                     WHERE p.reservation_id = r.id AND p.type = 'balance' AND p.status = 'succeeded'
	                 )) AS balance_due
	          FROM reservations r
	          JOIN teams t ON t.id = r.team_id
	          JOIN customers c ON c.id = r.customer_id
	          JOIN vehicles v ON v.id = r.vehicle_id
	          WHERE r.status IN ('paid', 'confirmed')
	            AND r.reminder_sent_at IS NULL
	            AND r.start_date >= $1 AND r.start_date < $2
	          ORDER BY r.start_date, r.id`

	logger.DatabaseCall("SELECT", "reservations", "purpose", "reminders", "from", from, "to", to)
	var candidates []domain.ReminderCandidate
	err := r.db.SelectContext(ctx, &candidates, query, from, to)
	logger.DatabaseResult("SELECT", int64(len(candidates)), err)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *reminderRepository) MarkSent(ctx context.Context, reservationID int32, at time.Time) error {
	query := `UPDATE reservations SET reminder_sent_at = $1 WHERE id = $2 AND reminder_sent_at IS NULL`
	logger.DatabaseCall("UPDATE", "reservations", "reservationID", reservationID, "purpose", "reminders")
	res, err := r.db.ExecContext(ctx, query, at, reservationID)
	if err != nil {
		return err
	}
	return expectOne(res, "reminder already sent")
}
