package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"rentdesk-backend/internal/contractdoc"
	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/esign"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/storage"
)

type contractService struct {
	reservations repository.ReservationRepository
	contracts    repository.ContractRepository
	teams        repository.TeamRepository
	customers    repository.CustomerRepository
	vehicles     repository.VehicleRepository
	renderer     contractdoc.Renderer
	signatures   esign.Provider
	artifacts    storage.ArtifactStore
	events       EventPublisher
	currency     string
}

func NewContractService(
	reservations repository.ReservationRepository,
	contracts repository.ContractRepository,
	teams repository.TeamRepository,
	customers repository.CustomerRepository,
	vehicles repository.VehicleRepository,
	renderer contractdoc.Renderer,
	signatures esign.Provider,
	artifacts storage.ArtifactStore,
	events EventPublisher,
	currency string,
) ContractService {
	return &contractService{
		reservations: reservations,
		contracts:    contracts,
		teams:        teams,
		customers:    customers,
		vehicles:     vehicles,
		renderer:     renderer,
		signatures:   signatures,
		artifacts:    artifacts,
		events:       events,
		currency:     currency,
	}
}

// GenerateAndSend renders the agreement and sends it for signature. It is a
// no-op returning the existing contract when one was already sent.
func (s *contractService) GenerateAndSend(ctx context.Context, teamID, reservationID int32) (*domain.Contract, error) {
	logger.EnterMethod("contractService.GenerateAndSend", "teamID", teamID, "reservationID", reservationID)

	res, err := s.reservations.GetForTeam(ctx, teamID, reservationID)
	if err != nil {
		logger.ExitMethodWithError("contractService.GenerateAndSend", err, "reason", "reservation lookup")
		return nil, err
	}

	existing, err := s.contracts.GetByReservationID(ctx, res.ID)
	if err == nil {
		logger.ExitMethod("contractService.GenerateAndSend", "contractID", existing.ID, "existing", true)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.ExitMethodWithError("contractService.GenerateAndSend", err, "reason", "contract lookup")
		return nil, err
	}
	if res.Status != domain.ReservationStatusPaid {
		err := domain.Conflictf("reservation is %s, contracts are sent once it is paid", res.Status)
		logger.ExitMethodWithError("contractService.GenerateAndSend", err, "reservationID", reservationID)
		return nil, err
	}

	c, err := s.send(ctx, res)
	if err != nil {
		logger.ExitMethodWithError("contractService.GenerateAndSend", err, "reservationID", reservationID)
		return nil, err
	}

	s.events.Publish(ctx, domain.LifecycleEvent{
		Type:          domain.EventContractSignatureSent,
		TeamID:        res.TeamID,
		ReservationID: res.ID,
		Status:        res.Status,
		OccurredAt:    time.Now().UTC(),
	})
	logger.ExitMethod("contractService.GenerateAndSend", "contractID", c.ID, "requestID", c.SignatureRequestID)
	return c, nil
}

func (s *contractService) send(ctx context.Context, res *domain.Reservation) (*domain.Contract, error) {
	team, err := s.teams.GetByID(ctx, res.TeamID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.GetByID(ctx, res.TeamID, res.CustomerID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicles.GetByID(ctx, res.TeamID, res.VehicleID)
	if err != nil {
		return nil, err
	}

	doc, err := s.renderer.Render(contractdoc.Data{
		Team:        *team,
		Customer:    *customer,
		Vehicle:     *vehicle,
		Reservation: *res,
		Currency:    s.currency,
		IssuedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}

	env, err := s.signatures.Send(ctx, esign.Request{
		Name:         contractdoc.Title(res.ID),
		DocumentName: fmt.Sprintf("contract-%d.pdf", res.ID),
		Document:     doc,
		Signer: esign.Signer{
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Email:     customer.Email,
			Locale:    customer.Locale,
		},
	})
	if err != nil {
		return nil, err
	}

	c := &domain.Contract{
		ReservationID:      res.ID,
		SignatureRequestID: env.RequestID,
		DocumentID:         env.DocumentID,
	}
	if err := s.contracts.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			// Lost a race with a concurrent send; the other request is the one on record.
			logger.Warn("Contract already recorded, orphaned signature request", "reservationID", res.ID, "requestID", env.RequestID)
			return s.contracts.GetByReservationID(ctx, res.ID)
		}
		return nil, err
	}
	return c, nil
}

func (s *contractService) OpenSignedDocument(ctx context.Context, teamID, reservationID int32) (io.ReadCloser, error) {
	if _, err := s.reservations.GetForTeam(ctx, teamID, reservationID); err != nil {
		return nil, err
	}
	c, err := s.contracts.GetByReservationID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !c.IsSigned() || c.SignedLocation == "" {
		return nil, domain.NotFoundf("contract for reservation %d is not signed yet", reservationID)
	}
	return s.artifacts.Open(ctx, c.SignedLocation)
}
