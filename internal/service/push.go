package service

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"rentdesk-backend/internal/logger"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type pushService struct {
	client messageSender
}

// NewPushService delivers to the FCM topic every staff device of a team subscribes to.
func NewPushService(client *messaging.Client) PushService {
	return &pushService{client: client}
}

func TeamTopic(teamID int32) string {
	return fmt.Sprintf("team-%d", teamID)
}

func (s *pushService) SendToTeam(ctx context.Context, teamID int32, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Topic: TeamTopic(teamID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	logger.ExternalServiceCall("fcm", "send", "topic", msg.Topic)
	id, err := s.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err, "topic", msg.Topic, "messageID", id)
	return err
}

type nopPush struct{}

// NopPushService is used when no Firebase project is configured.
func NopPushService() PushService { return nopPush{} }

func (nopPush) SendToTeam(ctx context.Context, teamID int32, title, body string, data map[string]string) error {
	return nil
}
