package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/payment"
	"rentdesk-backend/internal/utils"
)

func deposit(cents int64) *int64 { return &cents }

func newCheckoutUnderTest(db *memDB, gw *MockGateway, serviceFee int64) CheckoutService {
	return NewCheckoutService(
		memReservations{db}, memPayments{db}, memTeams{db}, memCustomers{db},
		gw, utils.NewFeeCalculator(serviceFee),
		CheckoutConfig{Currency: "usd", PublicBaseURL: "https://rentdesk.test/"},
	)
}

func TestCheckoutService_StartBalanceCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Charges balance plus tier fee", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPaid, 1000, deposit(300))
		db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeDeposit, AmountCents: 300, Status: domain.PaymentStatusSucceeded})

		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(req payment.CheckoutRequest) bool {
			return req.ChargeCents == 735 &&
				req.ApplicationFeeCents == 35 &&
				req.DestinationAccount == "acct_123" &&
				req.Metadata[domain.MetaPaymentType] == "balance" &&
				req.SuccessURL == "https://rentdesk.test/api/v1/public/checkout/success?session_id={CHECKOUT_SESSION_ID}"
		})).Return(&domain.CheckoutSession{ID: "cs_bal", URL: "https://pay.test/cs_bal"}, nil)

		svc := newCheckoutUnderTest(db, gw, 250)
		out, err := svc.StartBalanceCheckout(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(735), out.ChargeCents)
		assert.Equal(t, int64(35), out.FeeCents)
		assert.Equal(t, "https://pay.test/cs_bal", out.CheckoutURL)

		row := db.payment(out.PaymentID)
		assert.Equal(t, int64(700), row.AmountCents)
		assert.Equal(t, int64(35), row.FeeCents)
		assert.Equal(t, domain.PaymentStatusPending, row.Status)
		assert.Equal(t, "cs_bal", row.SessionID)
		assert.Equal(t, domain.ReservationStatusPaid, db.reservation(res.ID).Status)
		gw.AssertExpectations(t)
	})

	t.Run("Deposit not paid", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPaid, 1000, deposit(300))
		gw := new(MockGateway)

		_, err := newCheckoutUnderTest(db, gw, 0).StartBalanceCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
		gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("Balance already paid", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusConfirmed, 1000, deposit(300))
		db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeDeposit, AmountCents: 300, Status: domain.PaymentStatusSucceeded})
		db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeBalance, AmountCents: 700, FeeCents: 35, Status: domain.PaymentStatusSucceeded})
		gw := new(MockGateway)

		_, err := newCheckoutUnderTest(db, gw, 0).StartBalanceCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
		assert.Contains(t, err.Error(), "balance already paid")
	})

	t.Run("Legacy partial total row counts as deposit", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPaid, 1000, deposit(300))
		db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeTotal, AmountCents: 300, Status: domain.PaymentStatusSucceeded})
		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_1", URL: "u"}, nil)

		out, err := newCheckoutUnderTest(db, gw, 0).StartBalanceCheckout(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(735), out.ChargeCents)
	})

	t.Run("Full total row is not a deposit", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPaid, 1000, deposit(300))
		db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeTotal, AmountCents: 1000, Status: domain.PaymentStatusSucceeded})

		_, err := newCheckoutUnderTest(db, new(MockGateway), 0).StartBalanceCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
	})

	t.Run("Single payment plan has no balance", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPaid, 1000, nil)

		_, err := newCheckoutUnderTest(db, new(MockGateway), 0).StartBalanceCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
	})

	t.Run("Draft reservation", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusDraft, 1000, deposit(300))

		_, err := newCheckoutUnderTest(db, new(MockGateway), 0).StartBalanceCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
	})

	t.Run("Other team", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPaid, 1000, deposit(300))

		_, err := newCheckoutUnderTest(db, new(MockGateway), 0).StartBalanceCheckout(ctx, 99, res.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCheckoutService_StartInitialCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Deposit plan from draft", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusDraft, 1000, deposit(300))
		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(req payment.CheckoutRequest) bool {
			return req.ChargeCents == 550 && req.ApplicationFeeCents == 250 &&
				req.CancelURL == "https://rentdesk.test/api/v1/public/checkout/cancel?reservation_id=10"
		})).Return(&domain.CheckoutSession{ID: "cs_dep", URL: "https://pay.test/cs_dep"}, nil)

		out, err := newCheckoutUnderTest(db, gw, 250).StartInitialCheckout(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentTypeDeposit, out.PaymentType)
		assert.Equal(t, int64(550), out.ChargeCents)
		assert.Equal(t, domain.ReservationStatusPendingPayment, db.reservation(res.ID).Status)

		row := db.payment(out.PaymentID)
		assert.Equal(t, int64(300), row.AmountCents)
		assert.Equal(t, "cs_dep", row.SessionID)
		gw.AssertExpectations(t)
	})

	t.Run("Single payment plan charges the total", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusDraft, 1000, nil)
		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_tot", URL: "u"}, nil)

		out, err := newCheckoutUnderTest(db, gw, 0).StartInitialCheckout(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentTypeTotal, out.PaymentType)
		assert.Equal(t, int64(1000), out.ChargeCents)
	})

	t.Run("Paid reservation rejected", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPaid, 1000, nil)

		_, err := newCheckoutUnderTest(db, new(MockGateway), 0).StartInitialCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
	})

	t.Run("Payout account missing", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusDraft, 1000, nil)
		team := db.teams[1]
		team.PayoutAccountID = ""
		db.teams[1] = team

		_, err := newCheckoutUnderTest(db, new(MockGateway), 0).StartInitialCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
		assert.Contains(t, err.Error(), "payout account")
	})

	t.Run("Supersedes abandoned session", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPendingPayment, 1000, nil)
		old := db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeTotal, AmountCents: 1000, Status: domain.PaymentStatusPending, SessionID: "cs_old"})

		gw := new(MockGateway)
		gw.On("ExpireSession", ctx, "cs_old").Return(nil)
		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_new", URL: "u"}, nil)

		out, err := newCheckoutUnderTest(db, gw, 0).StartInitialCheckout(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.NotEqual(t, old.ID, out.PaymentID)
		assert.Equal(t, domain.PaymentStatusFailed, db.payment(old.ID).Status)
		assert.Equal(t, domain.PaymentStatusPending, db.payment(out.PaymentID).Status)
		gw.AssertExpectations(t)
	})

	t.Run("Old session already completed", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPendingPayment, 1000, nil)
		old := db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeTotal, AmountCents: 1000, Status: domain.PaymentStatusPending, SessionID: "cs_old"})

		gw := new(MockGateway)
		gw.On("ExpireSession", ctx, "cs_old").Return(domain.Conflictf("session cs_old is complete"))

		_, err := newCheckoutUnderTest(db, gw, 0).StartInitialCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
		assert.Equal(t, domain.PaymentStatusPending, db.payment(old.ID).Status)
		gw.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	})

	t.Run("Gateway failure releases the ledger row", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusDraft, 1000, nil)
		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(nil, domain.Upstream("stripe", errors.New("timeout")))

		_, err := newCheckoutUnderTest(db, gw, 0).StartInitialCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.Equal(t, domain.ReservationStatusDraft, db.reservation(res.ID).Status)

		_, err = memPayments{db}.FindLive(ctx, res.ID, domain.PaymentTypeTotal)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Unrecorded session is expired and the row released", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusDraft, 1000, nil)
		db.attachErr = errors.New("connection reset")
		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_lost", URL: "u"}, nil).Once()
		gw.On("ExpireSession", ctx, "cs_lost").Return(nil)

		svc := newCheckoutUnderTest(db, gw, 0)
		_, err := svc.StartInitialCheckout(ctx, res.TeamID, res.ID)
		require.Error(t, err)
		_, err = memPayments{db}.FindLive(ctx, res.ID, domain.PaymentTypeTotal)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_next", URL: "u"}, nil).Once()
		out, err := svc.StartInitialCheckout(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, "cs_next", db.payment(out.PaymentID).SessionID)
		gw.AssertNumberOfCalls(t, "ExpireSession", 1)
		gw.AssertExpectations(t)
	})

	t.Run("Unrecorded session that cannot be expired holds the row", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusDraft, 1000, nil)
		db.attachErr = errors.New("connection reset")
		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_lost", URL: "u"}, nil).Once()
		gw.On("ExpireSession", ctx, "cs_lost").Return(domain.Upstream("stripe", errors.New("timeout")))

		svc := newCheckoutUnderTest(db, gw, 0)
		_, err := svc.StartInitialCheckout(ctx, res.TeamID, res.ID)
		require.Error(t, err)
		held, err := memPayments{db}.FindLive(ctx, res.ID, domain.PaymentTypeTotal)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPending, held.Status)
		assert.Empty(t, held.SessionID)

		// A retry inside the session lifetime must not open a second payable session.
		_, err = svc.StartInitialCheckout(ctx, res.TeamID, res.ID)
		assert.ErrorIs(t, err, domain.ErrStateConflict)
		gw.AssertNumberOfCalls(t, "CreateCheckoutSession", 1)
		assert.Equal(t, domain.PaymentStatusPending, db.payment(held.ID).Status)
	})

	t.Run("Unrecorded row is superseded once the session has lapsed", func(t *testing.T) {
		db := newMemDB()
		res := db.seed(domain.ReservationStatusPendingPayment, 1000, nil)
		old := db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeTotal, AmountCents: 1000, Status: domain.PaymentStatusPending, CreatedOn: time.Now().Add(-payment.SessionLifetime - time.Minute)})
		gw := new(MockGateway)
		gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_new", URL: "u"}, nil)

		out, err := newCheckoutUnderTest(db, gw, 0).StartInitialCheckout(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.NotEqual(t, old.ID, out.PaymentID)
		assert.Equal(t, domain.PaymentStatusFailed, db.payment(old.ID).Status)
		gw.AssertNotCalled(t, "ExpireSession", mock.Anything, mock.Anything)
	})
}

func TestPortalService(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	res := db.seed(domain.ReservationStatusPaid, 1000, deposit(300))
	db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeDeposit, AmountCents: 300, FeeCents: 250, Status: domain.PaymentStatusSucceeded})
	db.addPayment(domain.Payment{ReservationID: res.ID, Type: domain.PaymentTypeBalance, AmountCents: 700, Status: domain.PaymentStatusFailed})

	gw := new(MockGateway)
	gw.On("CreateCheckoutSession", ctx, mock.Anything).Return(&domain.CheckoutSession{ID: "cs_portal", URL: "https://pay.test/cs_portal"}, nil)
	checkout := newCheckoutUnderTest(db, gw, 0)
	svc := NewPortalService(memReservations{db}, memPayments{db}, memTeams{db}, memCustomers{db}, memVehicles{db}, checkout)

	t.Run("View by magic token", func(t *testing.T) {
		view, err := svc.ViewByMagicToken(ctx, "magic-abc")
		require.NoError(t, err)
		assert.Equal(t, "Westfalia", view.VehicleName)
		assert.Equal(t, "Ana Lima", view.CustomerName)
		assert.Equal(t, int64(300), view.AmountPaidCents)
		assert.Equal(t, int64(700), view.AmountDueCents)
		assert.Equal(t, "2026-07-01", view.StartDate)
	})

	t.Run("Unknown token", func(t *testing.T) {
		_, err := svc.ViewByBalanceToken(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = svc.CheckoutByMagicToken(ctx, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Balance checkout by token", func(t *testing.T) {
		out, err := svc.CheckoutByBalanceToken(ctx, "balance-abc")
		require.NoError(t, err)
		assert.Equal(t, "https://pay.test/cs_portal", out.CheckoutURL)
		assert.Equal(t, int64(735), out.ChargeCents)
	})

	t.Run("List payments is team scoped", func(t *testing.T) {
		rows, err := svc.ListPayments(ctx, res.TeamID, res.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 3)

		_, err = svc.ListPayments(ctx, 42, res.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
