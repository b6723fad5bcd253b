package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType identifies the action that produced a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
	NotificationFollow  NotificationType = "FOLLOW"
)

// Notification is addressed to UserID about an action taken by CreatorID.
// Rows are never written for self-triggered actions.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	Type      NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	UserID    string           `gorm:"size:36;not null;index:idx_notifications_user_created,priority:1;check:chk_notifications_not_self,user_id <> creator_id" json:"user_id"`
	CreatorID string           `gorm:"size:36;not null" json:"creator_id"`
	PostID    *string          `gorm:"size:36;index" json:"post_id,omitempty"`
	CommentID *string          `gorm:"size:36" json:"comment_id,omitempty"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_user_created,priority:2" json:"created_at"`

	Creator *User    `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"creator,omitempty"`
	Post    *Post    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"comment,omitempty"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
