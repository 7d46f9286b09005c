package domain

import "time"

// Contract tracks the signature request for a reservation. Whether it was
// declined or expired is read from the owning reservation's status.
type Contract struct {
	ID                 int32      `json:"id"`
	ReservationID      int32      `json:"reservation_id"`
	SignatureRequestID string     `json:"signature_request_id"`
	DocumentID         string     `json:"document_id"`
	SignedAt           *time.Time `json:"signed_at,omitempty"`
	SignedLocation     string     `json:"signed_location,omitempty"`
	CreatedOn          time.Time  `json:"created_on"`
}

func (c *Contract) IsSigned() bool {
	return c.SignedAt != nil
}
