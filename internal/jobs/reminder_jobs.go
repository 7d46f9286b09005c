package jobs

import (
	"context"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
)

// SendReminders emails customers whose pickup falls inside the reminder
// window. A failed item is counted and the batch moves on; only a failed scan
// aborts it.
func (jr *JobRunner) SendReminders(ctx context.Context) (domain.ReminderReport, error) {
	var report domain.ReminderReport

	now := jr.now().UTC()
	due, err := jr.reminders.ListDue(ctx, now, now.Add(jr.config.ReminderWindow()))
	if err != nil {
		logger.Error("Failed to query due reminders", "error", err)
		return report, err
	}

	for _, c := range due {
		if ctx.Err() != nil {
			logger.Warn("Reminder batch interrupted", "processed", report.Processed, "remaining", len(due)-report.Processed)
			break
		}
		report.Processed++

		if err := jr.emails.SendReminder(ctx, c); err != nil {
			report.Failed++
			logger.Error("Failed to send reminder", "reservationID", c.ReservationID, "kind", c.Kind(), "error", err)
			continue
		}
		if err := jr.reminders.MarkSent(ctx, c.ReservationID, jr.now().UTC()); err != nil {
			// The email went out; a retry may send it again.
			report.Failed++
			logger.Error("Failed to record reminder", "reservationID", c.ReservationID, "error", err)
			continue
		}
		report.Succeeded++
	}

	logger.Info("Reminders sent", "processed", report.Processed, "succeeded", report.Succeeded, "failed", report.Failed)
	return report, nil
}
