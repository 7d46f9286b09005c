package service

import (
	"context"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
	push     PushService
}

func NewNotificationService(noteRepo repository.NotificationRepository, push PushService) NotificationService {
	return &notificationService{noteRepo: noteRepo, push: push}
}

func (s *notificationService) GetNotifications(ctx context.Context, teamID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, teamID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, teamID, notificationID int32) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, teamID)
}

func (s *notificationService) Notify(ctx context.Context, teamID int32, title, message string, attrs map[string]string) error {
	note := &domain.Notification{
		TeamID:     teamID,
		Title:      title,
		Message:    message,
		Attributes: attrs,
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return err
	}
	if err := s.push.SendToTeam(ctx, teamID, title, message, attrs); err != nil {
		logger.Warn("Push notification failed", "teamID", teamID, "title", title, "error", err)
	}
	return nil
}
