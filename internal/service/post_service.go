package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"socialgraph/internal/cache"
	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/repository"
)

const maxPostLen = 10000

type PostService struct {
	posts repository.PostRepository
	store *cache.Store
	views ViewInvalidator
	committer
}

type CreatePostInput struct {
	Content  string
	ImageURL *string
}

func NewPostService(
	posts repository.PostRepository,
	uow repository.UnitOfWork,
	store *cache.Store,
	views ViewInvalidator,
) *PostService {
	return &PostService{
		posts:     posts,
		store:     store,
		views:     views,
		committer: committer{uow: uow},
	}
}

func (s *PostService) CreatePost(ctx context.Context, actor identity.Actor, in CreatePostInput) (*models.Post, error) {
	userID, ok := actor.ID()
	if !ok {
		return nil, models.NewUnauthenticatedError()
	}

	content := strings.TrimSpace(in.Content)
	var imageURL *string
	if in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) != "" {
		trimmed := strings.TrimSpace(*in.ImageURL)
		imageURL = &trimmed
	}
	if content == "" && imageURL == nil {
		return nil, models.NewValidationError("Post must have content or an image")
	}
	if utf8.RuneCountInString(content) > maxPostLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}

	post := &models.Post{AuthorID: userID, Content: content, ImageURL: imageURL}
	if err := s.commit(ctx, []repository.Write{repository.InsertPost(post)}, nil); err != nil {
		return nil, storeError("Failed to create post", err)
	}

	invalidate(s.views, cache.FeedView)
	return post, nil
}

// ListPosts returns the global feed, newest first. The feed is cached per
// feed generation; every committed mutation moves the generation.
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := s.store.View(ctx, cache.FeedView, &posts, func() error {
		var fetchErr error
		posts, fetchErr = s.posts.List(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, storeError("Failed to fetch posts", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *PostService) ListUserPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	posts, err := s.posts.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, storeError("Failed to fetch user posts", err)
	}
	return posts, nil
}

func (s *PostService) ListLikedPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	posts, err := s.posts.ListLikedBy(ctx, userID)
	if err != nil {
		return nil, storeError("Failed to fetch liked posts", err)
	}
	return posts, nil
}

func (s *PostService) DeletePost(ctx context.Context, actor identity.Actor, postID string) error {
	userID, ok := actor.ID()
	if !ok {
		return models.NewUnauthenticatedError()
	}

	authorID, err := s.posts.GetAuthorID(ctx, postID)
	if repository.IsNotFound(err) {
		return models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return storeError("Failed to delete post", err)
	}
	if authorID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}

	err = s.commit(ctx, []repository.Write{repository.DeletePostCascade(postID)}, nil)
	if repository.IsNotFound(err) {
		return models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return storeError("Failed to delete post", err)
	}

	invalidate(s.views, cache.FeedView)
	return nil
}
