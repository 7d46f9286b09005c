package http

import (
	"context"
	"net/http"

	"rentdesk-backend/internal/domain"
)

type reminderSender interface {
	SendReminders(ctx context.Context) (domain.ReminderReport, error)
}

// CronHandler lets an external scheduler trigger batch jobs.
type CronHandler struct {
	reminders reminderSender
}

func NewCronHandler(reminders reminderSender) *CronHandler {
	return &CronHandler{reminders: reminders}
}

func (h *CronHandler) SendReminders(w http.ResponseWriter, r *http.Request) {
	report, err := h.reminders.SendReminders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
