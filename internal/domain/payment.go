package domain

import "time"

type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeBalance PaymentType = "balance"
	PaymentTypeTotal   PaymentType = "total"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is one ledger row per payment attempt. AmountCents is the team's net
// share and FeeCents the platform's; the customer was charged their sum.
type Payment struct {
	ID            int32         `json:"id"`
	ReservationID int32         `json:"reservation_id"`
	Type          PaymentType   `json:"type"`
	AmountCents   int64         `json:"amount_cents"`
	FeeCents      int64         `json:"fee_cents"`
	Status        PaymentStatus `json:"status"`
	SessionID     string        `json:"session_id,omitempty"`
	CreatedOn     time.Time     `json:"created_on"`
	UpdatedOn     time.Time     `json:"updated_on"`
	SucceededOn   *time.Time    `json:"succeeded_on,omitempty"`
}

func (p *Payment) ChargeCents() int64 {
	return p.AmountCents + p.FeeCents
}

// Metadata keys attached to gateway sessions for later reconciliation.
const (
	MetaReservationID = "reservation_id"
	MetaCustomerID    = "customer_id"
	MetaTeamID        = "team_id"
	MetaPaymentType   = "payment_type"
	MetaPaymentID     = "payment_id"
)

// CheckoutSession is the gateway's view of a hosted payment page.
type CheckoutSession struct {
	ID       string
	URL      string
	Paid     bool
	Metadata map[string]string
}

// CheckoutResult is returned to the customer-facing caller.
type CheckoutResult struct {
	PaymentID   int32       `json:"payment_id"`
	PaymentType PaymentType `json:"payment_type"`
	CheckoutURL string      `json:"checkout_url"`
	ChargeCents int64       `json:"charge_cents"`
	FeeCents    int64       `json:"fee_cents"`
}

// SettlementResult reports what a reconciliation pass did.
type SettlementResult struct {
	PaymentID      int32             `json:"payment_id"`
	PaymentStatus  PaymentStatus     `json:"payment_status"`
	Reservation    ReservationStatus `json:"reservation_status"`
	AlreadySettled bool              `json:"already_settled"`
}
