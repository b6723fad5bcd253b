// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"fmt"

	"socialgraph/internal/models"

	"gorm.io/gorm"
)

// Write is one planned statement. A list of writes is committed together by a
// UnitOfWork or not at all.
type Write struct {
	Name  string
	Apply func(tx *gorm.DB) error
}

// UnitOfWork commits planned writes atomically.
type UnitOfWork interface {
	Commit(ctx context.Context, writes ...Write) error
}

type unitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Commit(ctx context.Context, writes ...Write) error {
	if len(writes) == 0 {
		return nil
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			if err := w.Apply(tx); err != nil {
				return fmt.Errorf("%s: %w", w.Name, err)
			}
		}
		return nil
	})
}

func InsertPost(post *models.Post) Write {
	return Write{Name: "insert post", Apply: func(tx *gorm.DB) error {
		return tx.Create(post).Error
	}}
}

func InsertLike(like *models.Like) Write {
	return Write{Name: "insert like", Apply: func(tx *gorm.DB) error {
		return tx.Create(like).Error
	}}
}

func InsertFollow(follow *models.Follow) Write {
	return Write{Name: "insert follow", Apply: func(tx *gorm.DB) error {
		return tx.Create(follow).Error
	}}
}

func InsertComment(comment *models.Comment) Write {
	return Write{Name: "insert comment", Apply: func(tx *gorm.DB) error {
		return tx.Create(comment).Error
	}}
}

func InsertNotification(n *models.Notification) Write {
	return Write{Name: "insert notification", Apply: func(tx *gorm.DB) error {
		return tx.Create(n).Error
	}}
}

// DeletePostCascade removes a post together with its likes, comments and the
// notifications that point at it.
func DeletePostCascade(postID string) Write {
	return Write{Name: "delete post", Apply: func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", postID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}}
}
