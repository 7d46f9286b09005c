package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

const reservationColumns = `id, team_id, customer_id, vehicle_id, status, magic_token, balance_token,
	start_date, end_date, total_amount_cents, deposit_amount_cents,
	checkin_at, checkin_mileage, checkin_fuel_level, checkin_notes, checkin_photos,
	checkout_at, checkout_mileage, checkout_fuel_level, checkout_notes, checkout_photos,
	reminder_sent_at, created_on, updated_on`

type rowScanner interface {
	Scan(dest ...any) error
}

type handoverColumns struct {
	at        sql.NullTime
	mileage   sql.NullInt32
	fuelLevel sql.NullInt32
	notes     sql.NullString
	photos    pq.StringArray
}

func (h *handoverColumns) targets() []any {
	return []any{&h.at, &h.mileage, &h.fuelLevel, &h.notes, &h.photos}
}

func (h *handoverColumns) toDomain() *domain.Handover {
	if !h.at.Valid {
		return nil
	}
	return &domain.Handover{
		At:        h.at.Time,
		Mileage:   h.mileage.Int32,
		FuelLevel: h.fuelLevel.Int32,
		Notes:     h.notes.String,
		Photos:    []string(h.photos),
	}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var deposit sql.NullInt64
	var reminder sql.NullTime
	var in, out handoverColumns

	dest := []any{&res.ID, &res.TeamID, &res.CustomerID, &res.VehicleID, &res.Status, &res.MagicToken, &res.BalanceToken,
		&res.StartDate, &res.EndDate, &res.TotalAmountCents, &deposit}
	dest = append(dest, in.targets()...)
	dest = append(dest, out.targets()...)
	dest = append(dest, &reminder, &res.CreatedOn, &res.UpdatedOn)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if deposit.Valid {
		d := deposit.Int64
		res.DepositAmountCents = &d
	}
	if reminder.Valid {
		t := reminder.Time
		res.ReminderSentAt = &t
	}
	res.CheckIn = in.toDomain()
	res.CheckOut = out.toDomain()
	return res, nil
}

type reservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) getOne(ctx context.Context, where string, args ...any) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE ` + where
	logger.DatabaseCall("SELECT", "reservations", "where", where)
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "reservation not found")
	}
	return res, nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *reservationRepository) GetForTeam(ctx context.Context, teamID, id int32) (*domain.Reservation, error) {
	return r.getOne(ctx, "id = $1 AND team_id = $2", id, teamID)
}

func (r *reservationRepository) GetByMagicToken(ctx context.Context, token string) (*domain.Reservation, error) {
	return r.getOne(ctx, "magic_token = $1", token)
}

func (r *reservationRepository) GetByBalanceToken(ctx context.Context, token string) (*domain.Reservation, error) {
	return r.getOne(ctx, "balance_token = $1", token)
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id int32, from, to domain.ReservationStatus) error {
	logger.EnterMethod("reservationRepository.UpdateStatus", "reservationID", id, "from", from, "to", to)

	query := `UPDATE reservations SET status = $1, updated_on = $2 WHERE id = $3 AND status = $4`
	logger.DatabaseCall("UPDATE", "reservations", "reservationID", id)
	res, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		err = translate(err, "reservation status")
		logger.ExitMethodWithError("reservationRepository.UpdateStatus", err, "reservationID", id)
		return err
	}
	if err := expectOne(res, "reservation is no longer "+string(from)); err != nil {
		logger.ExitMethodWithError("reservationRepository.UpdateStatus", err, "reservationID", id)
		return err
	}

	logger.ExitMethod("reservationRepository.UpdateStatus", "reservationID", id, "status", to)
	return nil
}

func (r *reservationRepository) CheckIn(ctx context.Context, teamID, id int32, h domain.Handover) (*domain.Reservation, error) {
	return r.handover(ctx, teamID, id, domain.EventCheckIn, h)
}

func (r *reservationRepository) CheckOut(ctx context.Context, teamID, id int32, h domain.Handover) (*domain.Reservation, error) {
	return r.handover(ctx, teamID, id, domain.EventCheckOut, h)
}

func (r *reservationRepository) handover(ctx context.Context, teamID, id int32, event domain.ReservationEvent, h domain.Handover) (*domain.Reservation, error) {
	method := "reservationRepository." + string(event)
	logger.EnterMethod(method, "teamID", teamID, "reservationID", id)

	res, err := r.handoverTx(ctx, teamID, id, event, h)
	if err != nil {
		logger.ExitMethodWithError(method, err, "reservationID", id)
		return nil, err
	}

	logger.ExitMethod(method, "reservationID", id, "status", res.Status)
	return res, nil
}

func (r *reservationRepository) handoverTx(ctx context.Context, teamID, id int32, event domain.ReservationEvent, h domain.Handover) (*domain.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 AND team_id = $2 FOR UPDATE`
	logger.DatabaseCall("SELECT FOR UPDATE", "reservations", "reservationID", id)
	res, err := scanReservation(tx.QueryRowContext(ctx, query, id, teamID))
	if err != nil {
		return nil, translate(err, "reservation not found")
	}

	next, err := domain.Transition(res.Status, event)
	if err != nil {
		if errors.Is(err, domain.ErrTransitionApplied) {
			return nil, domain.Conflictf("%s already recorded", event)
		}
		return nil, err
	}

	if h.At.IsZero() {
		h.At = time.Now()
	}
	prefix := "checkin"
	vehicleStatus := domain.VehicleStatusRented
	if event == domain.EventCheckOut {
		if res.CheckIn != nil && h.Mileage < res.CheckIn.Mileage {
			return nil, domain.Validationf("check-out mileage %d is below check-in mileage %d", h.Mileage, res.CheckIn.Mileage)
		}
		prefix = "checkout"
		vehicleStatus = domain.VehicleStatusAvailable
	} else {
		var other int32
		activeQuery := `SELECT id FROM reservations WHERE vehicle_id = $1 AND status = $2 AND id <> $3 LIMIT 1`
		logger.DatabaseCall("SELECT", "reservations", "vehicleID", res.VehicleID, "check", "active")
		err := tx.QueryRowContext(ctx, activeQuery, res.VehicleID, domain.ReservationStatusInProgress, res.ID).Scan(&other)
		if err == nil {
			return nil, domain.Conflictf("vehicle %d is already out on reservation %d", res.VehicleID, other)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	update := `UPDATE reservations SET status = $1, ` +
		prefix + `_at = $2, ` + prefix + `_mileage = $3, ` + prefix + `_fuel_level = $4, ` +
		prefix + `_notes = $5, ` + prefix + `_photos = $6, updated_on = $7
		WHERE id = $8 AND status = $9`
	logger.DatabaseCall("UPDATE", "reservations", "reservationID", id, "status", next)
	result, err := tx.ExecContext(ctx, update, next, h.At, h.Mileage, h.FuelLevel, h.Notes, pq.Array(h.Photos), time.Now(), res.ID, res.Status)
	if err != nil {
		return nil, translate(err, "vehicle already has an active reservation")
	}
	if err := expectOne(result, "reservation is no longer "+string(res.Status)); err != nil {
		return nil, err
	}

	if err := setVehicleState(ctx, tx, teamID, res.VehicleID, vehicleStatus, h.Mileage); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	res.Status = next
	stored := h
	if event == domain.EventCheckIn {
		res.CheckIn = &stored
	} else {
		res.CheckOut = &stored
	}
	return res, nil
}
