package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/payment"
	"rentdesk-backend/internal/repository"
	"rentdesk-backend/internal/utils"
)

// CheckoutConfig carries what the hosted payment page needs besides the reservation.
type CheckoutConfig struct {
	Currency      string
	PublicBaseURL string
}

func (c CheckoutConfig) successURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/api/v1/public/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

func (c CheckoutConfig) cancelURL(reservationID int32) string {
	return fmt.Sprintf("%s/api/v1/public/checkout/cancel?reservation_id=%d", strings.TrimRight(c.PublicBaseURL, "/"), reservationID)
}

type checkoutService struct {
	reservations repository.ReservationRepository
	payments     repository.PaymentRepository
	teams        repository.TeamRepository
	customers    repository.CustomerRepository
	gateway      payment.Gateway
	fees         *utils.FeeCalculator
	cfg          CheckoutConfig
	now          func() time.Time
}

func NewCheckoutService(
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	teams repository.TeamRepository,
	customers repository.CustomerRepository,
	gateway payment.Gateway,
	fees *utils.FeeCalculator,
	cfg CheckoutConfig,
) CheckoutService {
	return &checkoutService{
		reservations: reservations,
		payments:     payments,
		teams:        teams,
		customers:    customers,
		gateway:      gateway,
		fees:         fees,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *checkoutService) StartInitialCheckout(ctx context.Context, teamID, reservationID int32) (*domain.CheckoutResult, error) {
	logger.EnterMethod("checkoutService.StartInitialCheckout", "teamID", teamID, "reservationID", reservationID)

	res, err := s.reservations.GetForTeam(ctx, teamID, reservationID)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.StartInitialCheckout", err, "reason", "reservation lookup")
		return nil, err
	}
	if res.Status != domain.ReservationStatusDraft && res.Status != domain.ReservationStatusPendingPayment {
		err := domain.Conflictf("reservation is %s, initial payment is no longer possible", res.Status)
		logger.ExitMethodWithError("checkoutService.StartInitialCheckout", err, "reservationID", reservationID)
		return nil, err
	}

	team, customer, err := s.parties(ctx, res)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.StartInitialCheckout", err, "reservationID", reservationID)
		return nil, err
	}

	paymentType, amount := res.InitialPayment()
	result, err := s.open(ctx, res, team, customer, paymentType, s.fees.ServiceFee(amount))
	if err != nil {
		logger.ExitMethodWithError("checkoutService.StartInitialCheckout", err, "reservationID", reservationID)
		return nil, err
	}

	if res.Status == domain.ReservationStatusDraft {
		next, err := domain.Transition(res.Status, domain.EventCheckoutStarted)
		if err == nil {
			err = s.reservations.UpdateStatus(ctx, res.ID, res.Status, next)
		}
		if err != nil && !errors.Is(err, domain.ErrStateConflict) {
			logger.ExitMethodWithError("checkoutService.StartInitialCheckout", err, "reason", "status update")
			return nil, err
		}
		if err != nil {
			// A concurrent settlement already moved the reservation on.
			logger.Warn("Reservation left draft concurrently", "reservationID", res.ID, "error", err)
		}
	}

	logger.ExitMethod("checkoutService.StartInitialCheckout", "reservationID", reservationID, "paymentID", result.PaymentID)
	return result, nil
}

func (s *checkoutService) StartBalanceCheckout(ctx context.Context, teamID, reservationID int32) (*domain.CheckoutResult, error) {
	logger.EnterMethod("checkoutService.StartBalanceCheckout", "teamID", teamID, "reservationID", reservationID)

	res, err := s.reservations.GetForTeam(ctx, teamID, reservationID)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.StartBalanceCheckout", err, "reason", "reservation lookup")
		return nil, err
	}
	if err := s.checkBalanceAllowed(ctx, res); err != nil {
		logger.ExitMethodWithError("checkoutService.StartBalanceCheckout", err, "reservationID", reservationID)
		return nil, err
	}

	team, customer, err := s.parties(ctx, res)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.StartBalanceCheckout", err, "reservationID", reservationID)
		return nil, err
	}

	fees := s.fees.Fee(res.BalanceAmountCents(), team.PlanTier)
	result, err := s.open(ctx, res, team, customer, domain.PaymentTypeBalance, fees)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.StartBalanceCheckout", err, "reservationID", reservationID)
		return nil, err
	}

	logger.ExitMethod("checkoutService.StartBalanceCheckout", "reservationID", reservationID, "paymentID", result.PaymentID, "chargeCents", result.ChargeCents)
	return result, nil
}

func (s *checkoutService) checkBalanceAllowed(ctx context.Context, res *domain.Reservation) error {
	switch res.Status {
	case domain.ReservationStatusPaid, domain.ReservationStatusConfirmed, domain.ReservationStatusInProgress:
	default:
		return domain.Conflictf("reservation is %s, balance cannot be collected", res.Status)
	}
	if !res.HasDepositPlan() {
		return domain.Conflictf("reservation has no deposit plan")
	}
	if res.BalanceAmountCents() <= 0 {
		return domain.Conflictf("reservation has no outstanding balance")
	}

	depositPaid, err := s.depositPaid(ctx, res)
	if err != nil {
		return err
	}
	if !depositPaid {
		return domain.Conflictf("deposit has not been paid")
	}

	balance, err := s.payments.FindLive(ctx, res.ID, domain.PaymentTypeBalance)
	switch {
	case err == nil && balance.Status == domain.PaymentStatusSucceeded:
		return domain.Conflictf("balance already paid")
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return nil
}

// depositPaid accepts a succeeded deposit row, or a succeeded total row whose
// amount is below the reservation total (rows written before deposits had
// their own type).
func (s *checkoutService) depositPaid(ctx context.Context, res *domain.Reservation) (bool, error) {
	deposit, err := s.payments.FindLive(ctx, res.ID, domain.PaymentTypeDeposit)
	if err == nil && deposit.Status == domain.PaymentStatusSucceeded {
		return true, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	legacy, err := s.payments.FindLive(ctx, res.ID, domain.PaymentTypeTotal)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return legacy.Status == domain.PaymentStatusSucceeded && legacy.AmountCents < res.TotalAmountCents, nil
}

func (s *checkoutService) parties(ctx context.Context, res *domain.Reservation) (*domain.Team, *domain.Customer, error) {
	team, err := s.teams.GetByID(ctx, res.TeamID)
	if err != nil {
		return nil, nil, err
	}
	if !team.HasPayoutAccount() {
		return nil, nil, domain.Conflictf("payout account not configured")
	}
	customer, err := s.customers.GetByID(ctx, res.TeamID, res.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	return team, customer, nil
}

// open reserves the ledger row, then opens the gateway session for it. The
// partial unique index on live rows decides between concurrent requests.
func (s *checkoutService) open(ctx context.Context, res *domain.Reservation, team *domain.Team, customer *domain.Customer, paymentType domain.PaymentType, fees utils.FeeBreakdown) (*domain.CheckoutResult, error) {
	if err := s.supersede(ctx, res.ID, paymentType); err != nil {
		return nil, err
	}

	p := &domain.Payment{
		ReservationID: res.ID,
		Type:          paymentType,
		AmountCents:   fees.Amount,
		FeeCents:      fees.PlatformFee,
	}
	if err := s.payments.CreatePending(ctx, p); err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		PaymentID:           p.ID,
		Description:         fmt.Sprintf("%s - reservation #%d (%s)", team.Name, res.ID, paymentType),
		CustomerEmail:       customer.Email,
		Currency:            s.cfg.Currency,
		ChargeCents:         fees.Charge,
		ApplicationFeeCents: fees.PlatformFee,
		DestinationAccount:  team.PayoutAccountID,
		Metadata: map[string]string{
			domain.MetaReservationID: strconv.Itoa(int(res.ID)),
			domain.MetaCustomerID:    strconv.Itoa(int(res.CustomerID)),
			domain.MetaTeamID:        strconv.Itoa(int(res.TeamID)),
			domain.MetaPaymentType:   string(paymentType),
			domain.MetaPaymentID:     strconv.Itoa(int(p.ID)),
		},
		SuccessURL: s.cfg.successURL(),
		CancelURL:  s.cfg.cancelURL(res.ID),
	})
	if err != nil {
		if markErr := s.payments.MarkFailed(ctx, p.ID); markErr != nil {
			logger.Error("Failed to release payment row after gateway error", "paymentID", p.ID, "error", markErr)
		}
		return nil, err
	}

	if err := s.payments.AttachSession(ctx, p.ID, session.ID); err != nil {
		// An unrecorded session must not stay payable. The row is released only
		// once the gateway confirms the expiry; otherwise the pending row keeps
		// the slot until the session lapses on its own.
		if expErr := s.gateway.ExpireSession(ctx, session.ID); expErr != nil {
			logger.Error("Failed to expire unrecorded checkout session", "paymentID", p.ID, "sessionID", session.ID, "error", expErr)
			return nil, err
		}
		if markErr := s.payments.MarkFailed(ctx, p.ID); markErr != nil {
			logger.Error("Failed to release payment row after attach error", "paymentID", p.ID, "error", markErr)
		}
		return nil, err
	}

	return &domain.CheckoutResult{
		PaymentID:   p.ID,
		PaymentType: paymentType,
		CheckoutURL: session.URL,
		ChargeCents: fees.Charge,
		FeeCents:    fees.PlatformFee,
	}, nil
}

// supersede retires an abandoned pending row of the same type so a new session
// can be opened. The old session is expired first; if the gateway says it was
// already completed the request is rejected. A row whose session id was never
// recorded is held until any session opened for it has lapsed.
func (s *checkoutService) supersede(ctx context.Context, reservationID int32, paymentType domain.PaymentType) error {
	live, err := s.payments.FindLive(ctx, reservationID, paymentType)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if live.Status == domain.PaymentStatusSucceeded {
		return domain.Conflictf("%s payment already succeeded", paymentType)
	}

	if live.SessionID == "" {
		if s.now().Sub(live.CreatedOn) < payment.SessionLifetime {
			return domain.Conflictf("%s payment %d is still being opened", paymentType, live.ID)
		}
	} else if err := s.gateway.ExpireSession(ctx, live.SessionID); err != nil {
		return err
	}
	if err := s.payments.MarkFailed(ctx, live.ID); err != nil {
		return err
	}
	logger.Info("Superseded pending payment", "reservationID", reservationID, "paymentID", live.ID, "type", paymentType)
	return nil
}
