package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/service"
)

// StaffHandler serves authenticated staff of one team. The team always comes
// from the token, never from the request.
type StaffHandler struct {
	handover      service.HandoverService
	contracts     service.ContractService
	portal        service.PortalService
	notifications service.NotificationService
	now           func() time.Time
}

func NewStaffHandler(handover service.HandoverService, contracts service.ContractService, portal service.PortalService, notifications service.NotificationService) *StaffHandler {
	return &StaffHandler{
		handover:      handover,
		contracts:     contracts,
		portal:        portal,
		notifications: notifications,
		now:           time.Now,
	}
}

type handoverRequest struct {
	OccurredAt *time.Time `json:"occurred_at"`
	Mileage    *int32     `json:"mileage"`
	FuelLevel  *int32     `json:"fuel_level"`
	Notes      string     `json:"notes"`
	Photos     []string   `json:"photos"`
}

func (h *StaffHandler) decodeHandover(r *http.Request) (domain.Handover, error) {
	var req handoverRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		return domain.Handover{}, domain.Validationf("invalid body: %v", err)
	}
	if req.Mileage == nil || req.FuelLevel == nil {
		return domain.Handover{}, domain.Validationf("mileage and fuel_level are required")
	}
	at := h.now().UTC()
	if req.OccurredAt != nil {
		at = req.OccurredAt.UTC()
	}
	return domain.Handover{
		At:        at,
		Mileage:   *req.Mileage,
		FuelLevel: *req.FuelLevel,
		Notes:     req.Notes,
		Photos:    req.Photos,
	}, nil
}

type handoverFunc func(ctx context.Context, teamID, reservationID int32, h domain.Handover) (*domain.Reservation, error)

func (h *StaffHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.recordHandover(w, r, h.handover.CheckIn)
}

func (h *StaffHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.recordHandover(w, r, h.handover.CheckOut)
}

func (h *StaffHandler) recordHandover(w http.ResponseWriter, r *http.Request, apply handoverFunc) {
	teamID, err := teamIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ho, err := h.decodeHandover(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := apply(r.Context(), teamID, id, ho)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StaffHandler) SendContract(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.contracts.GenerateAndSend(r.Context(), teamID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *StaffHandler) ContractDocument(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := h.contracts.OpenSignedDocument(r.Context(), teamID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer doc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="contract-%d.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc); err != nil {
		logger.Warn("Contract download interrupted", "reservationID", id, "error", err)
	}
}

func (h *StaffHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	payments, err := h.portal.ListPayments(r.Context(), teamID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *StaffHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	notes, total, err := h.notifications.GetNotifications(r.Context(), teamID, queryInt(r, "page", 1), queryInt(r, "page_size", 20))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes, "total": total})
}

func (h *StaffHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.notifications.MarkAsRead(r.Context(), teamID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
