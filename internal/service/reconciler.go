package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/esign"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/payment"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/storage"
)

const casRetries = 3

type reconcilerService struct {
	reservations repository.ReservationRepository
	payments     repository.PaymentRepository
	contracts    repository.ContractRepository
	teams        repository.TeamRepository
	customers    repository.CustomerRepository
	gateway      payment.Gateway
	signatures   esign.Provider
	artifacts    storage.ArtifactStore
	contractSvc  ContractService
	notes        NotificationService
	emails       EmailService
	events       EventPublisher
	dedup        Deduper
	now          func() time.Time
}

func NewReconcilerService(
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	contracts repository.ContractRepository,
	teams repository.TeamRepository,
	customers repository.CustomerRepository,
	gateway payment.Gateway,
	signatures esign.Provider,
	artifacts storage.ArtifactStore,
	contractSvc ContractService,
	notes NotificationService,
	emails EmailService,
	events EventPublisher,
	dedup Deduper,
) ReconcilerService {
	return &reconcilerService{
		reservations: reservations,
		payments:     payments,
		contracts:    contracts,
		teams:        teams,
		customers:    customers,
		gateway:      gateway,
		signatures:   signatures,
		artifacts:    artifacts,
		contractSvc:  contractSvc,
		notes:        notes,
		emails:       emails,
		events:       events,
		dedup:        dedup,
		now:          time.Now,
	}
}

func (s *reconcilerService) HandleStripeEvent(ctx context.Context, ev *payment.WebhookEvent) error {
	logger.EnterMethod("reconcilerService.HandleStripeEvent", "eventID", ev.ID, "type", ev.Type)

	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, "stripe", ev.ID)
		if err != nil {
			logger.Warn("Dedup cache unavailable, using database path", "eventID", ev.ID, "error", err)
		} else if seen {
			logger.Info("Stripe event already processed", "eventID", ev.ID, "type", ev.Type)
			return nil
		}
	}

	var err error
	switch ev.Type {
	case payment.EventSessionCompleted, payment.EventSessionAsyncSucceeded:
		_, err = s.SettleCheckoutSession(ctx, ev.Session)
	case payment.EventSessionExpired, payment.EventSessionAsyncFailed:
		err = s.FailCheckoutSession(ctx, ev.Session)
	default:
		logger.Debug("Ignoring stripe event", "eventID", ev.ID, "type", ev.Type)
	}

	if errors.Is(err, domain.ErrNotFound) {
		// Not ours, or not yet recorded. Acknowledge so the gateway stops retrying.
		logger.Warn("Stripe event does not match any payment", "eventID", ev.ID, "type", ev.Type, "error", err)
		err = nil
	}
	if err != nil {
		logger.ExitMethodWithError("reconcilerService.HandleStripeEvent", err, "eventID", ev.ID)
		return err
	}

	if s.dedup != nil {
		if err := s.dedup.Mark(ctx, "stripe", ev.ID); err != nil {
			logger.Warn("Failed to record processed stripe event", "eventID", ev.ID, "error", err)
		}
	}
	logger.ExitMethod("reconcilerService.HandleStripeEvent", "eventID", ev.ID)
	return nil
}

func (s *reconcilerService) VerifyCheckoutSession(ctx context.Context, sessionID string) (*domain.SettlementResult, error) {
	if sessionID == "" {
		return nil, domain.Validationf("session_id is required")
	}
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.SettleCheckoutSession(ctx, session)
}

func (s *reconcilerService) SettleCheckoutSession(ctx context.Context, session *domain.CheckoutSession) (*domain.SettlementResult, error) {
	logger.EnterMethod("reconcilerService.SettleCheckoutSession", "sessionID", sessionID(session))

	p, err := s.findPayment(ctx, session)
	if err != nil {
		logger.ExitMethodWithError("reconcilerService.SettleCheckoutSession", err, "sessionID", sessionID(session))
		return nil, err
	}
	log := logger.WithService("reconciler").With("reservationID", p.ReservationID, "paymentID", p.ID, "sessionID", session.ID)
	result := &domain.SettlementResult{PaymentID: p.ID, PaymentStatus: p.Status}

	if !session.Paid {
		log.Info("Checkout session not paid yet")
		return s.withReservationStatus(ctx, result, p.ReservationID)
	}

	settledNow := false
	switch p.Status {
	case domain.PaymentStatusFailed:
		log.Warn("Paid checkout session matches a failed payment row, needs manual review")
		return s.withReservationStatus(ctx, result, p.ReservationID)
	case domain.PaymentStatusSucceeded:
		result.AlreadySettled = true
	case domain.PaymentStatusPending:
		err := s.payments.MarkSucceeded(ctx, p.ID, s.now())
		switch {
		case err == nil:
			settledNow = true
		case errors.Is(err, domain.ErrStateConflict):
			current, getErr := s.payments.GetByID(ctx, p.ID)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status != domain.PaymentStatusSucceeded {
				log.Warn("Payment left pending concurrently", "status", current.Status)
				result.PaymentStatus = current.Status
				return s.withReservationStatus(ctx, result, p.ReservationID)
			}
			result.AlreadySettled = true
		default:
			logger.ExitMethodWithError("reconcilerService.SettleCheckoutSession", err, "paymentID", p.ID)
			return nil, err
		}
	}
	result.PaymentStatus = domain.PaymentStatusSucceeded

	// The reservation transition runs on redelivery too, so a crash between the
	// two updates converges.
	res, applied, err := s.applyPaymentToReservation(ctx, p)
	if err != nil {
		logger.ExitMethodWithError("reconcilerService.SettleCheckoutSession", err, "paymentID", p.ID)
		return nil, err
	}
	result.Reservation = res.Status

	if settledNow {
		s.afterPayment(ctx, res, p)
	}
	if applied {
		s.publish(ctx, domain.EventReservationPaid, res, p.ID)
		if res.Status == domain.ReservationStatusPaid {
			if _, err := s.contractSvc.GenerateAndSend(ctx, res.TeamID, res.ID); err != nil {
				log.Error("Failed to start contract signature", "error", err)
			}
		}
	}

	logger.ExitMethod("reconcilerService.SettleCheckoutSession", "paymentID", p.ID, "reservationStatus", res.Status, "alreadySettled", result.AlreadySettled)
	return result, nil
}

// applyPaymentToReservation moves deposit and total payments' reservations to
// paid. Balance payments leave the status alone.
func (s *reconcilerService) applyPaymentToReservation(ctx context.Context, p *domain.Payment) (*domain.Reservation, bool, error) {
	if p.Type == domain.PaymentTypeBalance {
		res, err := s.reservations.GetByID(ctx, p.ReservationID)
		return res, false, err
	}
	res, applied, err := s.apply(ctx, p.ReservationID, domain.EventPaymentSucceeded)
	if errors.Is(err, domain.ErrStateConflict) && res != nil {
		logger.Warn("Payment succeeded for a reservation that cannot take it", "reservationID", res.ID, "status", res.Status, "paymentID", p.ID)
		return res, false, nil
	}
	return res, applied, err
}

func (s *reconcilerService) FailCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error {
	logger.EnterMethod("reconcilerService.FailCheckoutSession", "sessionID", sessionID(session))

	p, err := s.findPayment(ctx, session)
	if err != nil {
		logger.ExitMethodWithError("reconcilerService.FailCheckoutSession", err, "sessionID", sessionID(session))
		return err
	}
	if p.Status != domain.PaymentStatusPending {
		logger.Info("Checkout session closed for a settled payment row", "paymentID", p.ID, "status", p.Status)
		return nil
	}
	if err := s.payments.MarkFailed(ctx, p.ID); err != nil && !errors.Is(err, domain.ErrStateConflict) {
		logger.ExitMethodWithError("reconcilerService.FailCheckoutSession", err, "paymentID", p.ID)
		return err
	}

	logger.ExitMethod("reconcilerService.FailCheckoutSession", "paymentID", p.ID)
	return nil
}

func (s *reconcilerService) HandleSignatureEvent(ctx context.Context, ev *esign.Event) error {
	logger.EnterMethod("reconcilerService.HandleSignatureEvent", "requestID", ev.RequestID, "event", ev.Name)

	c, err := s.contracts.GetBySignatureRequestID(ctx, ev.RequestID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Signature event for unknown request", "requestID", ev.RequestID, "event", ev.Name)
		return nil
	}
	if err != nil {
		logger.ExitMethodWithError("reconcilerService.HandleSignatureEvent", err, "requestID", ev.RequestID)
		return err
	}

	switch ev.Kind {
	case esign.EventDone:
		err = s.signatureDone(ctx, c)
	case esign.EventDeclined, esign.EventExpired:
		err = s.signatureDeclined(ctx, c, ev.Kind)
	default:
		logger.Debug("Ignoring signature event", "requestID", ev.RequestID, "event", ev.Name)
	}
	if err != nil {
		logger.ExitMethodWithError("reconcilerService.HandleSignatureEvent", err, "requestID", ev.RequestID)
		return err
	}

	logger.ExitMethod("reconcilerService.HandleSignatureEvent", "requestID", ev.RequestID)
	return nil
}

func (s *reconcilerService) signatureDone(ctx context.Context, c *domain.Contract) error {
	if !c.IsSigned() {
		doc, err := s.signatures.DownloadSigned(ctx, c.SignatureRequestID)
		if err != nil {
			return err
		}
		key := storage.SignedContractKey(c.ReservationID)
		if err := s.artifacts.Put(ctx, key, "application/pdf", bytes.NewReader(doc)); err != nil {
			return err
		}
		if err := s.contracts.MarkSigned(ctx, c.ID, s.now(), key); err != nil && !errors.Is(err, domain.ErrStateConflict) {
			return err
		}
	}

	res, applied, err := s.apply(ctx, c.ReservationID, domain.EventSignatureCompleted)
	if errors.Is(err, domain.ErrStateConflict) && res != nil {
		logger.Warn("Signature completed for a reservation that cannot take it", "reservationID", res.ID, "status", res.Status)
		return nil
	}
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	s.publish(ctx, domain.EventReservationConfirmed, res, 0)
	s.notify(ctx, res.TeamID, "Contract signed", fmt.Sprintf("Reservation #%d is confirmed", res.ID), res.ID)
	if err := s.sendContractSigned(ctx, res); err != nil {
		logger.Error("Failed to send confirmation email", "reservationID", res.ID, "error", err)
	}
	return nil
}

func (s *reconcilerService) signatureDeclined(ctx context.Context, c *domain.Contract, kind esign.EventKind) error {
	res, applied, err := s.apply(ctx, c.ReservationID, domain.EventSignatureDeclined)
	if errors.Is(err, domain.ErrStateConflict) && res != nil {
		logger.Warn("Signature "+string(kind)+" ignored for reservation", "reservationID", res.ID, "status", res.Status)
		return nil
	}
	if err != nil {
		return err
	}
	if applied {
		s.publish(ctx, domain.EventReservationCancelled, res, 0)
		s.notify(ctx, res.TeamID, "Contract "+string(kind), fmt.Sprintf("Reservation #%d was cancelled", res.ID), res.ID)
	}
	return nil
}

// apply runs event against the reservation's current status and persists the
// result with a conditional update, re-reading on lost races. applied is false
// when the event's effect already held. On a state conflict the current
// reservation is still returned.
func (s *reconcilerService) apply(ctx context.Context, reservationID int32, event domain.ReservationEvent) (*domain.Reservation, bool, error) {
	for attempt := 0; ; attempt++ {
		res, err := s.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return nil, false, err
		}
		next, err := domain.Transition(res.Status, event)
		if errors.Is(err, domain.ErrTransitionApplied) {
			return res, false, nil
		}
		if err != nil {
			return res, false, err
		}

		err = s.reservations.UpdateStatus(ctx, res.ID, res.Status, next)
		if err == nil {
			res.Status = next
			return res, true, nil
		}
		if !errors.Is(err, domain.ErrStateConflict) || attempt+1 >= casRetries {
			return res, false, err
		}
	}
}

func (s *reconcilerService) findPayment(ctx context.Context, session *domain.CheckoutSession) (*domain.Payment, error) {
	if session == nil || session.ID == "" {
		return nil, domain.Validationf("checkout session missing")
	}
	p, err := s.payments.GetBySessionID(ctx, session.ID)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return p, err
	}

	raw := session.Metadata[domain.MetaPaymentID]
	id, convErr := strconv.Atoi(raw)
	if raw == "" || convErr != nil {
		return nil, err
	}
	p, err = s.payments.GetByID(ctx, int32(id))
	if err != nil {
		return nil, err
	}
	if p.SessionID == "" && p.Status == domain.PaymentStatusPending {
		if err := s.payments.AttachSession(ctx, p.ID, session.ID); err != nil {
			logger.Warn("Failed to backfill checkout session on payment", "paymentID", p.ID, "error", err)
		} else {
			p.SessionID = session.ID
		}
	}
	return p, nil
}

func (s *reconcilerService) withReservationStatus(ctx context.Context, result *domain.SettlementResult, reservationID int32) (*domain.SettlementResult, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	result.Reservation = res.Status
	return result, nil
}

func (s *reconcilerService) afterPayment(ctx context.Context, res *domain.Reservation, p *domain.Payment) {
	s.publish(ctx, domain.EventPaymentSettled, res, p.ID)
	s.notify(ctx, res.TeamID, "Payment received",
		fmt.Sprintf("%s payment for reservation #%d succeeded", p.Type, res.ID), res.ID)

	team, err := s.teams.GetByID(ctx, res.TeamID)
	if err != nil {
		logger.Error("Failed to load team for receipt", "teamID", res.TeamID, "error", err)
		return
	}
	customer, err := s.customers.GetByID(ctx, res.TeamID, res.CustomerID)
	if err != nil {
		logger.Error("Failed to load customer for receipt", "reservationID", res.ID, "error", err)
		return
	}
	if err := s.emails.SendPaymentReceipt(ctx, customer, team.Name, p); err != nil {
		logger.Error("Failed to send payment receipt", "reservationID", res.ID, "paymentID", p.ID, "error", err)
	}
}

func (s *reconcilerService) sendContractSigned(ctx context.Context, res *domain.Reservation) error {
	team, err := s.teams.GetByID(ctx, res.TeamID)
	if err != nil {
		return err
	}
	customer, err := s.customers.GetByID(ctx, res.TeamID, res.CustomerID)
	if err != nil {
		return err
	}
	return s.emails.SendContractSigned(ctx, customer, team.Name, res.ID)
}

func (s *reconcilerService) publish(ctx context.Context, t domain.LifecycleEventType, res *domain.Reservation, paymentID int32) {
	s.events.Publish(ctx, domain.LifecycleEvent{
		Type:          t,
		TeamID:        res.TeamID,
		ReservationID: res.ID,
		PaymentID:     paymentID,
		Status:        res.Status,
		OccurredAt:    s.now().UTC(),
	})
}

func (s *reconcilerService) notify(ctx context.Context, teamID int32, title, message string, reservationID int32) {
	attrs := map[string]string{domain.MetaReservationID: strconv.Itoa(int(reservationID))}
	if err := s.notes.Notify(ctx, teamID, title, message, attrs); err != nil {
		logger.Error("Failed to record staff notification", "teamID", teamID, "reservationID", reservationID, "error", err)
	}
}

func sessionID(session *domain.CheckoutSession) string {
	if session == nil {
		return ""
	}
	return session.ID
}
