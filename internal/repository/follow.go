package repository

import (
	"context"

	"socialgraph/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines interface for follow edge reads and removal.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	Delete(ctx context.Context, followerID, followingID string) error
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new FollowRepository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
}
