package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusDraft          ReservationStatus = "draft"
	ReservationStatusPendingPayment ReservationStatus = "pending_payment"
	ReservationStatusPaid           ReservationStatus = "paid"
	ReservationStatusConfirmed      ReservationStatus = "confirmed"
	ReservationStatusInProgress     ReservationStatus = "in_progress"
	ReservationStatusCompleted      ReservationStatus = "completed"
	ReservationStatusCancelled      ReservationStatus = "cancelled"
)

// Handover is an observation recorded by staff when a vehicle leaves or comes back.
type Handover struct {
	At        time.Time `json:"at"`
	Mileage   int32     `json:"mileage"`
	FuelLevel int32     `json:"fuel_level"` // percent, 0-100
	Notes     string    `json:"notes"`
	Photos    []string  `json:"photos"`
}

type Reservation struct {
	ID           int32             `json:"id"`
	TeamID       int32             `json:"team_id"`
	CustomerID   int32             `json:"customer_id"`
	VehicleID    int32             `json:"vehicle_id"`
	Status       ReservationStatus `json:"status"`
	MagicToken   string            `json:"-"`
	BalanceToken string            `json:"-"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      time.Time         `json:"end_date"`
	// Amounts are in minor currency units. A nil deposit means the customer pays
	// the whole amount in a single "total" payment.
	TotalAmountCents   int64      `json:"total_amount_cents"`
	DepositAmountCents *int64     `json:"deposit_amount_cents,omitempty"`
	CheckIn            *Handover  `json:"check_in,omitempty"`
	CheckOut           *Handover  `json:"check_out,omitempty"`
	ReminderSentAt     *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedOn          time.Time  `json:"created_on"`
	UpdatedOn          time.Time  `json:"updated_on"`
}

func (r *Reservation) HasDepositPlan() bool {
	return r.DepositAmountCents != nil && *r.DepositAmountCents > 0
}

// InitialPayment returns the payment type and amount charged by the first checkout.
func (r *Reservation) InitialPayment() (PaymentType, int64) {
	if r.HasDepositPlan() {
		return PaymentTypeDeposit, *r.DepositAmountCents
	}
	return PaymentTypeTotal, r.TotalAmountCents
}

// BalanceAmountCents is what remains after the deposit. Zero for single-payment plans.
func (r *Reservation) BalanceAmountCents() int64 {
	if !r.HasDepositPlan() {
		return 0
	}
	return r.TotalAmountCents - *r.DepositAmountCents
}

// ReservationView is what a customer sees through a magic link or balance token.
type ReservationView struct {
	Status             ReservationStatus `json:"status"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	VehicleName        string            `json:"vehicle_name"`
	CustomerName       string            `json:"customer_name"`
	TeamName           string            `json:"team_name"`
	TotalAmountCents   int64             `json:"total_amount_cents"`
	DepositAmountCents *int64            `json:"deposit_amount_cents,omitempty"`
	AmountPaidCents    int64             `json:"amount_paid_cents"`
	AmountDueCents     int64             `json:"amount_due_cents"`
}
