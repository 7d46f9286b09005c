package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"rentdesk-backend/internal/contractdoc"
	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/esign"
	"rentdesk-backend/internal/payment"
)

type MockGateway struct {
	mock.Mock
}

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
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockGateway) ParseWebhook(payload []byte, signatureHeader string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) Send(ctx context.Context, req esign.Request) (*esign.Envelope, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.Envelope), args.Error(1)
}

func (m *MockSigner) DownloadSigned(ctx context.Context, requestID string) ([]byte, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockContractService struct {
	mock.Mock
}

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

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, teamID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, teamID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *MockNotificationService) MarkAsRead(ctx context.Context, teamID, notificationID int32) error {
	args := m.Called(ctx, teamID, notificationID)
	return args.Error(0)
}

func (m *MockNotificationService) Notify(ctx context.Context, teamID int32, title, message string, attrs map[string]string) error {
	args := m.Called(ctx, teamID, title, message, attrs)
	return args.Error(0)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPaymentReceipt(ctx context.Context, customer *domain.Customer, teamName string, p *domain.Payment) error {
	args := m.Called(ctx, customer, teamName, p)
	return args.Error(0)
}

func (m *MockEmailService) SendContractSigned(ctx context.Context, customer *domain.Customer, teamName string, reservationID int32) error {
	args := m.Called(ctx, customer, teamName, reservationID)
	return args.Error(0)
}

func (m *MockEmailService) SendReminder(ctx context.Context, c domain.ReminderCandidate) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type MockPushService struct {
	mock.Mock
}

func (m *MockPushService) SendToTeam(ctx context.Context, teamID int32, title, body string, data map[string]string) error {
	args := m.Called(ctx, teamID, title, body, data)
	return args.Error(0)
}

type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	args := m.Called(ctx, provider, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) Mark(ctx context.Context, provider, eventID string) error {
	args := m.Called(ctx, provider, eventID)
	return args.Error(0)
}

type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNotificationRepo) List(ctx context.Context, teamID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, teamID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, teamID int32) error {
	args := m.Called(ctx, id, teamID)
	return args.Error(0)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(d contractdoc.Data) ([]byte, error) {
	args := m.Called(d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// recorder collects published lifecycle events.
type recorder struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (r *recorder) Publish(ctx context.Context, ev domain.LifecycleEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []domain.LifecycleEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LifecycleEventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// memArtifacts is an in-memory artifact store.
type memArtifacts struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{files: map[string][]byte{}}
}

func (s *memArtifacts) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = b
	return nil
}

func (s *memArtifacts) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[key]
	if !ok {
		return nil, domain.NotFoundf("artifact %s", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memArtifacts) Exists(ctx context.Context, key string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[key]
	return ok, int64(len(b)), nil
}

func (s *memArtifacts) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}
