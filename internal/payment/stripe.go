package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
)

// StripeGateway uses the package-level stripe.Key and HTTP client, set once at startup.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string, timeout time.Duration) *StripeGateway {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	if timeout > 0 {
		stripe.SetHTTPClient(&http.Client{Timeout: timeout})
	}
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*domain.CheckoutSession, error) {
	logger.ExternalServiceCall("stripe", "checkout.session.create", "paymentID", req.PaymentID, "chargeCents", req.ChargeCents, "feeCents", req.ApplicationFeeCents)

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		ExpiresAt:  stripe.Int64(time.Now().Add(SessionLifetime).Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.ChargeCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(req.ApplicationFeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(req.DestinationAccount),
			},
			Metadata: req.Metadata,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	// One session per ledger row, even if the create call is retried.
	params.SetIdempotencyKey(fmt.Sprintf("checkout-payment-%d", req.PaymentID))

	s, err := session.New(params)
	logger.ExternalServiceResult("stripe", "checkout.session.create", err, "paymentID", req.PaymentID)
	if err != nil {
		return nil, domain.Upstream("stripe", err)
	}
	return toCheckoutSession(s), nil
}

func (g *StripeGateway) GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	logger.ExternalServiceCall("stripe", "checkout.session.get", "sessionID", sessionID)

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := session.Get(sessionID, params)
	logger.ExternalServiceResult("stripe", "checkout.session.get", err, "sessionID", sessionID)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return nil, domain.NotFoundf("checkout session %s", sessionID)
		}
		return nil, domain.Upstream("stripe", err)
	}
	return toCheckoutSession(s), nil
}

func (g *StripeGateway) ExpireSession(ctx context.Context, sessionID string) error {
	logger.ExternalServiceCall("stripe", "checkout.session.expire", "sessionID", sessionID)

	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	_, err := session.Expire(sessionID, params)
	logger.ExternalServiceResult("stripe", "checkout.session.expire", err, "sessionID", sessionID)
	if err == nil {
		return nil
	}

	var se *stripe.Error
	if !errors.As(err, &se) || se.HTTPStatusCode != http.StatusBadRequest {
		return domain.Upstream("stripe", err)
	}
	// Only open sessions can be expired. An already expired one is fine, a
	// completed one means the customer paid.
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	s, getErr := session.Get(sessionID, getParams)
	if getErr == nil && s.Status == stripe.CheckoutSessionStatusExpired {
		return nil
	}
	return domain.Conflictf("checkout session %s is no longer open", sessionID)
}

func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, domain.Validationf("stripe signature: %v", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}
	if event.Data == nil {
		return nil, domain.Validationf("stripe event %s has no data", event.ID)
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, domain.Validationf("stripe event %s: %v", event.ID, err)
	}
	out.Session = toCheckoutSession(&s)
	return out, nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:  s.ID,
		URL: s.URL,
		Paid: s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
		Metadata: s.Metadata,
	}
}
