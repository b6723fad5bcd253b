package repository

import (
	"context"

	"socialgraph/internal/database"
	"socialgraph/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	PopulateCounts(ctx context.Context, user *models.User) error
	Suggestions(ctx context.Context, userID string, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.first(ctx, "external_id = ?", externalID)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

// first returns gorm.ErrRecordNotFound when nothing matches.
func (r *userRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) PopulateCounts(ctx context.Context, user *models.User) error {
	if err := database.Reader(ctx, r.db).Model(&models.Follow{}).Where("following_id = ?", user.ID).Count(&user.FollowerCount).Error; err != nil {
		return err
	}
	if err := database.Reader(ctx, r.db).Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&user.FollowingCount).Error; err != nil {
		return err
	}
	return database.Reader(ctx, r.db).Model(&models.Post{}).Where("author_id = ?", user.ID).Count(&user.PostCount).Error
}

// Suggestions returns users who are neither userID nor already followed by it.
func (r *userRepository) Suggestions(ctx context.Context, userID string, limit int) ([]models.User, error) {
	var users []models.User
	followed := r.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", userID)
	err := database.Reader(ctx, r.db).
		Where("id <> ?", userID).
		Where("id NOT IN (?)", followed).
		Order("created_at DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
