package repository

import (
	"context"

	"socialgraph/internal/models"

	"gorm.io/gorm"
)

// LikeRepository covers the single-statement unlike path.
type LikeRepository interface {
	Delete(ctx context.Context, userID, postID string) error
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Delete(ctx context.Context, userID, postID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
}
