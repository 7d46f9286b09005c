package esign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"rentdesk-backend/internal/domain"
)

const SignatureHeader = "X-Signature-256"

type EventKind string

const (
	EventDone     EventKind = "done"
	EventDeclined EventKind = "declined"
	EventExpired  EventKind = "expired"
	EventOther    EventKind = "other"
)

// Event is a verified signature-provider callback.
type Event struct {
	Name        string
	Kind        EventKind
	RequestID   string
	DocumentIDs []string
}

type webhookPayload struct {
	EventName string `json:"event_name"`
	Data      struct {
		SignatureRequest struct {
			ID        string `json:"id"`
			Documents []struct {
				ID string `json:"id"`
			} `json:"documents"`
		} `json:"signature_request"`
	} `json:"data"`
}

// Sign returns the header value for body, in the form "sha256=<hex>".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook checks the HMAC of body against header and decodes the event.
func ParseWebhook(secret string, body []byte, header string) (*Event, error) {
	if secret == "" {
		return nil, domain.Validationf("signature webhook secret not configured")
	}
	given := strings.TrimSpace(header)
	if !hmac.Equal([]byte(given), []byte(Sign(secret, body))) {
		return nil, domain.Validationf("signature webhook: bad signature")
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.Validationf("signature webhook: %v", err)
	}
	if p.Data.SignatureRequest.ID == "" {
		return nil, domain.Validationf("signature webhook: missing signature request id")
	}

	ev := &Event{
		Name:      p.EventName,
		Kind:      kindOf(p.EventName),
		RequestID: p.Data.SignatureRequest.ID,
	}
	for _, d := range p.Data.SignatureRequest.Documents {
		ev.DocumentIDs = append(ev.DocumentIDs, d.ID)
	}
	return ev, nil
}

func kindOf(name string) EventKind {
	name = strings.TrimPrefix(name, "signature_request.")
	name = strings.TrimPrefix(name, "request.")
	switch name {
	case "done":
		return EventDone
	case "declined":
		return EventDeclined
	case "expired":
		return EventExpired
	default:
		return EventOther
	}
}
