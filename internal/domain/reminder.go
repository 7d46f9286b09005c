package domain

import "time"

type ReminderKind string

const (
	ReminderPickup  ReminderKind = "pickup"
	ReminderBalance ReminderKind = "balance"
)

// ReminderCandidate is one row of the reminder scan, joined with what the email needs.
type ReminderCandidate struct {
	ReservationID int32     `db:"reservation_id"`
	TeamID        int32     `db:"team_id"`
	TeamName      string    `db:"team_name"`
	CustomerEmail string    `db:"customer_email"`
	CustomerName  string    `db:"customer_first_name"`
	VehicleName   string    `db:"vehicle_name"`
	StartDate     time.Time `db:"start_date"`
	MagicToken    string    `db:"magic_token"`
	BalanceToken  string    `db:"balance_token"`
	BalanceDue    bool      `db:"balance_due"`
}

func (c *ReminderCandidate) Kind() ReminderKind {
	if c.BalanceDue {
		return ReminderBalance
	}
	return ReminderPickup
}

// ReminderReport summarizes one reminder batch.
type ReminderReport struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
