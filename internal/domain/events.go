package domain

import "time"

type LifecycleEventType string

const (
	EventReservationPaid       LifecycleEventType = "reservation.paid"
	EventReservationConfirmed  LifecycleEventType = "reservation.confirmed"
	EventReservationCancelled  LifecycleEventType = "reservation.cancelled"
	EventReservationCheckedIn  LifecycleEventType = "reservation.checked_in"
	EventReservationCompleted  LifecycleEventType = "reservation.completed"
	EventPaymentSettled        LifecycleEventType = "payment.succeeded"
	EventContractSignatureSent LifecycleEventType = "contract.signature_requested"
)

// LifecycleEvent is published for downstream consumers after a state change is durable.
type LifecycleEvent struct {
	Type          LifecycleEventType `json:"type"`
	TeamID        int32              `json:"team_id"`
	ReservationID int32              `json:"reservation_id"`
	PaymentID     int32              `json:"payment_id,omitempty"`
	Status        ReservationStatus  `json:"status"`
	OccurredAt    time.Time          `json:"occurred_at"`
}
