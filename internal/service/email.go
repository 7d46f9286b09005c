package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rentdesk-backend/internal/contractdoc"
	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
)

// mailSender is the part of the SendGrid client the service needs.
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type emailService struct {
	client        mailSender
	fromEmail     string
	fromName      string
	portalBaseURL string
	currency      string
}

func NewEmailService(apiKey, fromEmail, fromName, portalBaseURL, currency string) EmailService {
	return newEmailService(sendgrid.NewSendClient(apiKey), fromEmail, fromName, portalBaseURL, currency)
}

func newEmailService(client mailSender, fromEmail, fromName, portalBaseURL, currency string) *emailService {
	return &emailService{
		client:        client,
		fromEmail:     fromEmail,
		fromName:      fromName,
		portalBaseURL: strings.TrimRight(portalBaseURL, "/"),
		currency:      currency,
	}
}

func (s *emailService) SendPaymentReceipt(ctx context.Context, customer *domain.Customer, teamName string, p *domain.Payment) error {
	subject := fmt.Sprintf("Payment received - %s", teamName)
	body := fmt.Sprintf("Hello %s,\n\nWe received your %s payment of %s for reservation #%d.\n\nThank you,\n%s",
		customer.FirstName, p.Type, contractdoc.Money(p.ChargeCents(), s.currency), p.ReservationID, teamName)
	return s.send(ctx, customer.Email, customer.FullName(), subject, body)
}

func (s *emailService) SendContractSigned(ctx context.Context, customer *domain.Customer, teamName string, reservationID int32) error {
	subject := fmt.Sprintf("Your rental agreement with %s is signed", teamName)
	body := fmt.Sprintf("Hello %s,\n\nYour rental agreement for reservation #%d has been signed. Your booking is confirmed.\n\nSee you soon,\n%s",
		customer.FirstName, reservationID, teamName)
	return s.send(ctx, customer.Email, customer.FullName(), subject, body)
}

func (s *emailService) SendReminder(ctx context.Context, c domain.ReminderCandidate) error {
	pickup := c.StartDate.Format("Monday, January 2 at 15:04")
	var subject, body string
	switch c.Kind() {
	case domain.ReminderBalance:
		subject = fmt.Sprintf("Balance due for your %s rental", c.VehicleName)
		body = fmt.Sprintf("Hello %s,\n\nYour %s pickup is on %s. The remaining balance is still open.\n\nPay it here: %s/balance/%s\n\n%s",
			c.CustomerName, c.VehicleName, pickup, s.portalBaseURL, c.BalanceToken, c.TeamName)
	default:
		subject = fmt.Sprintf("Upcoming pickup: %s", c.VehicleName)
		body = fmt.Sprintf("Hello %s,\n\nThis is a reminder that your %s pickup is on %s.\n\nReservation details: %s/r/%s\n\n%s",
			c.CustomerName, c.VehicleName, pickup, s.portalBaseURL, c.MagicToken, c.TeamName)
	}
	return s.send(ctx, c.CustomerEmail, c.CustomerName, subject, body)
}

func (s *emailService) send(ctx context.Context, to, toName, subject, plainText string) error {
	if to == "" {
		return domain.Validationf("recipient email is empty")
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, "")

	logger.ExternalServiceCall("sendgrid", "send", "subject", subject)
	resp, err := s.client.SendWithContext(ctx, message)
	if err == nil && resp.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "subject", subject)
	if err != nil {
		return domain.Upstream("sendgrid", err)
	}
	return nil
}
