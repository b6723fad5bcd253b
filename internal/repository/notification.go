package repository

import (
	"context"

	"socialgraph/internal/database"
	"socialgraph/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository covers the recipient's inbox. Notifications are only
// created through UnitOfWork writes.
type NotificationRepository interface {
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	DeleteForUser(ctx context.Context, userID string, ids []string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var out []models.Notification
	err := database.Reader(ctx, r.db).
		Preload("Creator").
		Preload("Post").
		Preload("Comment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// DeleteForUser removes the given notifications owned by userID; an empty ids
// slice clears the whole inbox.
func (r *notificationRepository) DeleteForUser(ctx context.Context, userID string, ids []string) (int64, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
