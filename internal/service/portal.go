package service

import (
	"context"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

type portalService struct {
	reservations repository.ReservationRepository
	payments     repository.PaymentRepository
	teams        repository.TeamRepository
	customers    repository.CustomerRepository
	vehicles     repository.VehicleRepository
	checkout     CheckoutService
}

func NewPortalService(
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	teams repository.TeamRepository,
	customers repository.CustomerRepository,
	vehicles repository.VehicleRepository,
	checkout CheckoutService,
) PortalService {
	return &portalService{
		reservations: reservations,
		payments:     payments,
		teams:        teams,
		customers:    customers,
		vehicles:     vehicles,
		checkout:     checkout,
	}
}

func (s *portalService) ViewByMagicToken(ctx context.Context, token string) (*domain.ReservationView, error) {
	res, err := s.reservations.GetByMagicToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, res)
}

func (s *portalService) ViewByBalanceToken(ctx context.Context, token string) (*domain.ReservationView, error) {
	res, err := s.reservations.GetByBalanceToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, res)
}

func (s *portalService) CheckoutByMagicToken(ctx context.Context, token string) (*domain.CheckoutResult, error) {
	res, err := s.reservations.GetByMagicToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.checkout.StartInitialCheckout(ctx, res.TeamID, res.ID)
}

func (s *portalService) CheckoutByBalanceToken(ctx context.Context, token string) (*domain.CheckoutResult, error) {
	res, err := s.reservations.GetByBalanceToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.checkout.StartBalanceCheckout(ctx, res.TeamID, res.ID)
}

func (s *portalService) ListPayments(ctx context.Context, teamID, reservationID int32) ([]domain.Payment, error) {
	if _, err := s.reservations.GetForTeam(ctx, teamID, reservationID); err != nil {
		return nil, err
	}
	return s.payments.ListByReservation(ctx, reservationID)
}

func (s *portalService) view(ctx context.Context, res *domain.Reservation) (*domain.ReservationView, error) {
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
	payments, err := s.payments.ListByReservation(ctx, res.ID)
	if err != nil {
		return nil, err
	}

	var paid int64
	for _, p := range payments {
		if p.Status == domain.PaymentStatusSucceeded {
			paid += p.AmountCents
		}
	}
	due := res.TotalAmountCents - paid
	if due < 0 {
		logger.Warn("Reservation collected more than its total", "reservationID", res.ID, "paidCents", paid)
		due = 0
	}

	return &domain.ReservationView{
		Status:             res.Status,
		StartDate:          res.StartDate.Format("2006-01-02"),
		EndDate:            res.EndDate.Format("2006-01-02"),
		VehicleName:        vehicle.Name,
		CustomerName:       customer.FullName(),
		TeamName:           team.Name,
		TotalAmountCents:   res.TotalAmountCents,
		DepositAmountCents: res.DepositAmountCents,
		AmountPaidCents:    paid,
		AmountDueCents:     due,
	}, nil
}
