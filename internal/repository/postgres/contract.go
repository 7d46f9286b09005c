package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

const contractColumns = `id, reservation_id, signature_request_id, document_id, signed_at, signed_location, created_on`

type contractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) repository.ContractRepository {
	return &contractRepository{db: db}
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	c := &domain.Contract{}
	var signedAt sql.NullTime
	var location sql.NullString
	if err := row.Scan(&c.ID, &c.ReservationID, &c.SignatureRequestID, &c.DocumentID, &signedAt, &location, &c.CreatedOn); err != nil {
		return nil, err
	}
	if signedAt.Valid {
		t := signedAt.Time
		c.SignedAt = &t
	}
	c.SignedLocation = location.String
	return c, nil
}

func (r *contractRepository) Create(ctx context.Context, c *domain.Contract) error {
	c.CreatedOn = time.Now()
	query := `INSERT INTO contracts (reservation_id, signature_request_id, document_id, created_on)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	logger.DatabaseCall("INSERT", "contracts", "reservationID", c.ReservationID, "requestID", c.SignatureRequestID)
	err := r.db.QueryRowContext(ctx, query, c.ReservationID, c.SignatureRequestID, c.DocumentID, c.CreatedOn).Scan(&c.ID)
	logger.DatabaseResult("INSERT", 1, err, "contractID", c.ID)
	return translate(err, "contract already exists")
}

func (r *contractRepository) GetByReservationID(ctx context.Context, reservationID int32) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE reservation_id = $1`
	logger.DatabaseCall("SELECT", "contracts", "reservationID", reservationID)
	c, err := scanContract(r.db.QueryRowContext(ctx, query, reservationID))
	if err != nil {
		return nil, translate(err, "contract not found")
	}
	return c, nil
}

func (r *contractRepository) GetBySignatureRequestID(ctx context.Context, requestID string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE signature_request_id = $1`
	logger.DatabaseCall("SELECT", "contracts", "requestID", requestID)
	c, err := scanContract(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		return nil, translate(err, "no contract for signature request "+requestID)
	}
	return c, nil
}

func (r *contractRepository) MarkSigned(ctx context.Context, id int32, at time.Time, location string) error {
	query := `UPDATE contracts SET signed_at = $1, signed_location = $2 WHERE id = $3 AND signed_at IS NULL`
	logger.DatabaseCall("UPDATE", "contracts", "contractID", id)
	res, err := r.db.ExecContext(ctx, query, at, location, id)
	if err != nil {
		return err
	}
	return expectOne(res, "contract already signed")
}
