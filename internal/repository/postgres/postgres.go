package postgres

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/repository"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
	repository.TeamRepository
	repository.CustomerRepository
	repository.VehicleRepository
	repository.ReservationRepository
	repository.PaymentRepository
	repository.ContractRepository
	repository.NotificationRepository
	repository.ReminderRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		TeamRepository:         NewTeamRepository(db),
		CustomerRepository:     NewCustomerRepository(db),
		VehicleRepository:      NewVehicleRepository(db),
		ReservationRepository:  NewReservationRepository(db),
		PaymentRepository:      NewPaymentRepository(db),
		ContractRepository:     NewContractRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		ReminderRepository:     NewReminderRepository(sqlx.NewDb(db, "postgres")),
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// translate maps driver errors onto the domain error kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("%s", what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.Conflictf("%s: %s", what, pqErr.Constraint)
	}
	return err
}

// expectOne turns a zero-row conditional update into a state conflict.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.Conflictf("%s", what)
	}
	return nil
}
