package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"socialgraph/internal/cache"
	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/repository"

	"github.com/google/uuid"
)

const maxCommentLen = 10000

type CommentService struct {
	posts repository.PostRepository
	views ViewInvalidator
	committer
}

type CreateCommentInput struct {
	PostID  string
	Content string
}

func NewCommentService(
	posts repository.PostRepository,
	uow repository.UnitOfWork,
	views ViewInvalidator,
	delivery NotificationDelivery,
) *CommentService {
	return &CommentService{
		posts:     posts,
		views:     views,
		committer: committer{uow: uow, delivery: delivery},
	}
}

func (s *CommentService) CreateComment(ctx context.Context, actor identity.Actor, in CreateCommentInput) (*models.Comment, error) {
	userID, ok := actor.ID()
	if !ok {
		return nil, models.NewUnauthenticatedError()
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	authorID, err := s.posts.GetAuthorID(ctx, in.PostID)
	if repository.IsNotFound(err) {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}
	if err != nil {
		return nil, storeError("Failed to create comment", err)
	}

	// The id is needed by the notification in the same transaction.
	comment := &models.Comment{
		ID:       uuid.NewString(),
		Content:  content,
		AuthorID: userID,
		PostID:   in.PostID,
	}
	note, _ := planNotification(models.NotificationComment, authorID, userID, &comment.PostID, &comment.ID)
	if err := s.commit(ctx, []repository.Write{repository.InsertComment(comment)}, note); err != nil {
		return nil, storeError("Failed to create comment", err)
	}

	invalidate(s.views, cache.FeedView)
	return comment, nil
}
