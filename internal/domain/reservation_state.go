package domain

import "errors"

type ReservationEvent string

const (
	EventCheckoutStarted    ReservationEvent = "checkout_started"
	EventPaymentSucceeded   ReservationEvent = "payment_succeeded"
	EventSignatureCompleted ReservationEvent = "signature_completed"
	EventSignatureDeclined  ReservationEvent = "signature_declined"
	EventCheckIn            ReservationEvent = "check_in"
	EventCheckOut           ReservationEvent = "check_out"
)

// ErrTransitionApplied means the event's effect already holds for the current
// status. Callers treat it as a successful no-op.
var ErrTransitionApplied = errors.New("transition already applied")

var transitions = map[ReservationStatus]map[ReservationEvent]ReservationStatus{
	ReservationStatusDraft: {
		EventCheckoutStarted:  ReservationStatusPendingPayment,
		EventPaymentSucceeded: ReservationStatusPaid,
	},
	ReservationStatusPendingPayment: {
		EventPaymentSucceeded:  ReservationStatusPaid,
		EventSignatureDeclined: ReservationStatusCancelled,
	},
	ReservationStatusPaid: {
		EventSignatureCompleted: ReservationStatusConfirmed,
		EventSignatureDeclined:  ReservationStatusCancelled,
		EventCheckIn:            ReservationStatusInProgress,
	},
	ReservationStatusConfirmed: {
		EventSignatureDeclined: ReservationStatusCancelled,
		EventCheckIn:           ReservationStatusInProgress,
	},
	ReservationStatusInProgress: {
		EventCheckOut: ReservationStatusCompleted,
	},
	ReservationStatusCompleted: {},
	ReservationStatusCancelled: {},
}

// Redelivered events whose effect is already visible in the status.
var applied = map[ReservationEvent]map[ReservationStatus]bool{
	EventCheckoutStarted: {
		ReservationStatusPendingPayment: true,
	},
	EventPaymentSucceeded: {
		ReservationStatusPaid:       true,
		ReservationStatusConfirmed:  true,
		ReservationStatusInProgress: true,
	},
	EventSignatureCompleted: {
		ReservationStatusConfirmed:  true,
		ReservationStatusInProgress: true,
	},
}

// Transition is the single authority for reservation status changes.
func Transition(from ReservationStatus, event ReservationEvent) (ReservationStatus, error) {
	edges, known := transitions[from]
	if !known {
		return from, Conflictf("unknown reservation status %q", from)
	}
	if IsTerminal(from) {
		return from, Conflictf("reservation is %s and cannot accept %s", from, event)
	}
	if next, ok := edges[event]; ok {
		return next, nil
	}
	if applied[event][from] {
		return from, ErrTransitionApplied
	}
	return from, Conflictf("cannot apply %s to a %s reservation", event, from)
}

func CanTransition(from ReservationStatus, event ReservationEvent) bool {
	_, err := Transition(from, event)
	return err == nil
}

func IsTerminal(s ReservationStatus) bool {
	return s == ReservationStatusCompleted || s == ReservationStatusCancelled
}
