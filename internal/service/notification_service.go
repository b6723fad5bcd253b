package service

import (
	"context"

	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/repository"
)

type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the actor's notifications, newest first. Anonymous actors have
// an empty inbox.
func (s *NotificationService) List(ctx context.Context, actor identity.Actor) ([]models.Notification, error) {
	userID, ok := actor.ID()
	if !ok {
		return []models.Notification{}, nil
	}
	out, err := s.notifications.ListForUser(ctx, userID)
	if err != nil {
		return nil, storeError("Failed to fetch notifications", err)
	}
	if out == nil {
		out = []models.Notification{}
	}
	return out, nil
}

// Dismiss deletes the given notifications from the actor's inbox, or all of
// them when ids is empty. Ids owned by other users are ignored.
func (s *NotificationService) Dismiss(ctx context.Context, actor identity.Actor, ids []string) (int64, error) {
	userID, ok := actor.ID()
	if !ok {
		return 0, models.NewUnauthenticatedError()
	}
	n, err := s.notifications.DeleteForUser(ctx, userID, ids)
	if err != nil {
		return 0, storeError("Failed to dismiss notifications", err)
	}
	return n, nil
}
