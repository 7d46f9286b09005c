package service

import (
	"context"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

type handoverService struct {
	reservations repository.ReservationRepository
	events       EventPublisher
}

func NewHandoverService(reservations repository.ReservationRepository, events EventPublisher) HandoverService {
	return &handoverService{reservations: reservations, events: events}
}

func validateHandover(h domain.Handover) error {
	if h.Mileage < 0 {
		return domain.Validationf("mileage must not be negative")
	}
	if h.FuelLevel < 0 || h.FuelLevel > 100 {
		return domain.Validationf("fuel level must be between 0 and 100")
	}
	return nil
}

func (s *handoverService) CheckIn(ctx context.Context, teamID, reservationID int32, h domain.Handover) (*domain.Reservation, error) {
	log := logger.WithReservation(teamID, reservationID)
	if err := validateHandover(h); err != nil {
		return nil, err
	}

	res, err := s.reservations.CheckIn(ctx, teamID, reservationID, h)
	if err != nil {
		log.Warn("Check-in rejected", "error", err)
		return nil, err
	}

	log.Info("Vehicle checked in", "vehicleID", res.VehicleID, "mileage", h.Mileage)
	s.publish(ctx, domain.EventReservationCheckedIn, res)
	return res, nil
}

func (s *handoverService) CheckOut(ctx context.Context, teamID, reservationID int32, h domain.Handover) (*domain.Reservation, error) {
	log := logger.WithReservation(teamID, reservationID)
	if err := validateHandover(h); err != nil {
		return nil, err
	}

	res, err := s.reservations.CheckOut(ctx, teamID, reservationID, h)
	if err != nil {
		log.Warn("Check-out rejected", "error", err)
		return nil, err
	}

	log.Info("Vehicle returned", "vehicleID", res.VehicleID, "mileage", h.Mileage)
	s.publish(ctx, domain.EventReservationCompleted, res)
	return res, nil
}

func (s *handoverService) publish(ctx context.Context, t domain.LifecycleEventType, res *domain.Reservation) {
	s.events.Publish(ctx, domain.LifecycleEvent{
		Type:          t,
		TeamID:        res.TeamID,
		ReservationID: res.ID,
		Status:        res.Status,
		OccurredAt:    time.Now().UTC(),
	})
}
