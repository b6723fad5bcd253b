package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID  string    `gorm:"size:36;not null;index" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Content   string    `gorm:"type:text" json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Likes    []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`

	// Aggregates are not persisted; computed at query time.
	LikeCount    int      `gorm:"-" json:"like_count"`
	CommentCount int      `gorm:"-" json:"comment_count"`
	LikedBy      []string `gorm:"-" json:"liked_by"`
}

func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Like represents a user's like on a post.
// The combination of UserID and PostID is the primary key.
type Like struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	PostID    string    `gorm:"primaryKey;size:36;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
