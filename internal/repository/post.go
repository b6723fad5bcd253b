package repository

import (
	"context"
	"errors"

	"socialgraph/internal/database"
	"socialgraph/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines interface for post reads. Writes go through UnitOfWork.
type PostRepository interface {
	GetAuthorID(ctx context.Context, postID string) (string, error)
	LikeState(ctx context.Context, postID, userID string) (LikeState, error)
	List(ctx context.Context) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	ListLikedBy(ctx context.Context, userID string) ([]*models.Post, error)
}

// LikeState is the single read phase of a like toggle.
type LikeState struct {
	AuthorID string
	Liked    bool
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// GetAuthorID returns gorm.ErrRecordNotFound when the post does not exist.
func (r *postRepository) GetAuthorID(ctx context.Context, postID string) (string, error) {
	var authorIDs []string
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Limit(1).
		Pluck("author_id", &authorIDs).Error
	if err != nil {
		return "", err
	}
	if len(authorIDs) == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return authorIDs[0], nil
}

// LikeState reads the post's author and whether userID already likes it in
// one statement. Returns gorm.ErrRecordNotFound when the post does not exist.
func (r *postRepository) LikeState(ctx context.Context, postID, userID string) (LikeState, error) {
	var row struct {
		AuthorID string
		Liked    bool
	}
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("posts.author_id AS author_id, EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked", userID).
		Where("posts.id = ?", postID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return LikeState{}, res.Error
	}
	if res.RowsAffected == 0 {
		return LikeState{}, gorm.ErrRecordNotFound
	}
	return LikeState{AuthorID: row.AuthorID, Liked: row.Liked}, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id = ?", authorID)
	})
}

func (r *postRepository) ListLikedBy(ctx context.Context, userID string) ([]*models.Post, error) {
	return r.find(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.id IN (?)",
			r.db.Model(&models.Like{}).Select("post_id").Where("user_id = ?", userID))
	})
}

// find loads posts newest first with author, ascending comments with their
// authors, and likes, then fills the computed aggregates.
func (r *postRepository) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*models.Post, error) {
	var posts []*models.Post
	err := scope(database.Reader(ctx, r.db)).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC")
		}).
		Preload("Comments.Author").
		Preload("Likes").
		Order("posts.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		populateAggregates(p)
	}
	return posts, nil
}

func populateAggregates(p *models.Post) {
	p.LikeCount = len(p.Likes)
	p.CommentCount = len(p.Comments)
	p.LikedBy = make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		p.LikedBy = append(p.LikedBy, l.UserID)
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
