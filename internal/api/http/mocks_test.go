package http_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/esign"
	"rentdesk-backend/internal/payment"
)

type MockPortalService struct{ mock.Mock }

func (m *MockPortalService) ViewByMagicToken(ctx context.Context, token string) (*domain.ReservationView, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReservationView), args.Error(1)
}

func (m *MockPortalService) ViewByBalanceToken(ctx context.Context, token string) (*domain.ReservationView, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReservationView), args.Error(1)
}

func (m *MockPortalService) CheckoutByMagicToken(ctx context.Context, token string) (*domain.CheckoutResult, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutResult), args.Error(1)
}

func (m *MockPortalService) CheckoutByBalanceToken(ctx context.Context, token string) (*domain.CheckoutResult, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutResult), args.Error(1)
}

func (m *MockPortalService) ListPayments(ctx context.Context, teamID, reservationID int32) ([]domain.Payment, error) {
	args := m.Called(ctx, teamID, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type MockReconcilerService struct{ mock.Mock }

func (m *MockReconcilerService) HandleStripeEvent(ctx context.Context, ev *payment.WebhookEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockReconcilerService) VerifyCheckoutSession(ctx context.Context, sessionID string) (*domain.SettlementResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

func (m *MockReconcilerService) SettleCheckoutSession(ctx context.Context, session *domain.CheckoutSession) (*domain.SettlementResult, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

func (m *MockReconcilerService) FailCheckoutSession(ctx context.Context, session *domain.CheckoutSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockReconcilerService) HandleSignatureEvent(ctx context.Context, ev *esign.Event) error {
	return m.Called(ctx, ev).Error(0)
}

type MockHandoverService struct{ mock.Mock }

func (m *MockHandoverService) CheckIn(ctx context.Context, teamID, reservationID int32, h domain.Handover) (*domain.Reservation, error) {
	args := m.Called(ctx, teamID, reservationID, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockHandoverService) CheckOut(ctx context.Context, teamID, reservationID int32, h domain.Handover) (*domain.Reservation, error) {
	args := m.Called(ctx, teamID, reservationID, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

type MockContractService struct{ mock.Mock }

func (m *MockContractService) GenerateAndSend(ctx context.Context, teamID, reservationID int32) (*domain.Contract, error) {
	args := m.Called(ctx, teamID, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockContractService) OpenSignedDocument(ctx context.Context, teamID, reservationID int32) (io.ReadCloser, error) {
	args := m.Called(ctx, teamID, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

type MockNotificationService struct{ mock.Mock }

func (m *MockNotificationService) GetNotifications(ctx context.Context, teamID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, teamID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, teamID, notificationID int32) error {
	return m.Called(ctx, teamID, notificationID).Error(0)
}

func (m *MockNotificationService) Notify(ctx context.Context, teamID int32, title, message string, attrs map[string]string) error {
	return m.Called(ctx, teamID, title, message, attrs).Error(0)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

func (m *MockGateway) GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ExpireSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockGateway) ParseWebhook(payload []byte, signatureHeader string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

type MockReminderSender struct{ mock.Mock }

func (m *MockReminderSender) SendReminders(ctx context.Context) (domain.ReminderReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ReminderReport), args.Error(1)
}

type MockReservationLookup struct{ mock.Mock }

func (m *MockReservationLookup) GetForTeam(ctx context.Context, teamID, id int32) (*domain.Reservation, error) {
	args := m.Called(ctx, teamID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
