// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local profile mirrored from the external identity provider.
type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ExternalID string    `gorm:"size:128;not null;uniqueIndex" json:"-"`
	Email      string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username   string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Name       string    `gorm:"size:255" json:"name"`
	Bio        string    `gorm:"type:text" json:"bio,omitempty"`
	Image      string    `json:"image,omitempty"`
	Location   string    `gorm:"size:255" json:"location,omitempty"`
	Website    string    `gorm:"size:255" json:"website,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Counts are not persisted; computed at query time.
	FollowerCount  int64 `gorm:"-" json:"follower_count"`
	FollowingCount int64 `gorm:"-" json:"following_count"`
	PostCount      int64 `gorm:"-" json:"post_count"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Follow is the directed edge follower -> following. Existence is its only state.
type Follow struct {
	FollowerID  string    `gorm:"primaryKey;size:36;check:chk_follows_not_self,follower_id <> following_id" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;size:36;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`

	Follower  *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"follower,omitempty"`
	Following *User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"following,omitempty"`
}
