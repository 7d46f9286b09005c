package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

type teamRepository struct {
	db *sql.DB
}

func NewTeamRepository(db *sql.DB) repository.TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) GetByID(ctx context.Context, id int32) (*domain.Team, error) {
	t := &domain.Team{}
	var payout, email sql.NullString
	var createdOn time.Time
	query := `SELECT id, name, plan_tier, payout_account_id, notification_email, created_on FROM teams WHERE id = $1`
	logger.DatabaseCall("SELECT", "teams", "teamID", id)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.PlanTier, &payout, &email, &createdOn)
	if err != nil {
		return nil, translate(err, "team not found")
	}
	t.PayoutAccountID = payout.String
	t.NotificationEmail = email.String
	t.CreatedOn = createdOn.Format("2006-01-02")
	return t, nil
}

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) repository.CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(ctx context.Context, teamID, id int32) (*domain.Customer, error) {
	c := &domain.Customer{}
	query := `SELECT id, team_id, first_name, COALESCE(last_name, ''), email, COALESCE(phone, ''), COALESCE(locale, 'en')
	          FROM customers WHERE id = $1 AND team_id = $2`
	logger.DatabaseCall("SELECT", "customers", "teamID", teamID, "customerID", id)
	err := r.db.QueryRowContext(ctx, query, id, teamID).Scan(&c.ID, &c.TeamID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Locale)
	if err != nil {
		return nil, translate(err, "customer not found")
	}
	return c, nil
}
