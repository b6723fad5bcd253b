package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"socialgraph/internal/models"
	"socialgraph/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	getAuthorIDFn  func(context.Context, string) (string, error)
	likeStateFn    func(context.Context, string, string) (repository.LikeState, error)
	listFn         func(context.Context) ([]*models.Post, error)
	listByAuthorFn func(context.Context, string) ([]*models.Post, error)
	listLikedByFn  func(context.Context, string) ([]*models.Post, error)
}

func (s *postRepoStub) GetAuthorID(ctx context.Context, postID string) (string, error) {
	return s.getAuthorIDFn(ctx, postID)
}
func (s *postRepoStub) LikeState(ctx context.Context, postID, userID string) (repository.LikeState, error) {
	return s.likeStateFn(ctx, postID, userID)
}
func (s *postRepoStub) List(ctx context.Context) ([]*models.Post, error) {
	return s.listFn(ctx)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID)
}
func (s *postRepoStub) ListLikedBy(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.listLikedByFn(ctx, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		getAuthorIDFn: func(context.Context, string) (string, error) { return "author", nil },
		likeStateFn: func(context.Context, string, string) (repository.LikeState, error) {
			return repository.LikeState{AuthorID: "author"}, nil
		},
		listFn:         func(context.Context) ([]*models.Post, error) { return nil, nil },
		listByAuthorFn: func(context.Context, string) ([]*models.Post, error) { return nil, nil },
		listLikedByFn:  func(context.Context, string) ([]*models.Post, error) { return nil, nil },
	}
}

type likeRepoStub struct {
	deleteFn func(context.Context, string, string) error
}

func (s *likeRepoStub) Delete(ctx context.Context, userID, postID string) error {
	return s.deleteFn(ctx, userID, postID)
}

type followRepoStub struct {
	existsFn func(context.Context, string, string) (bool, error)
	deleteFn func(context.Context, string, string) error
}

func (s *followRepoStub) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.existsFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Delete(ctx context.Context, followerID, followingID string) error {
	return s.deleteFn(ctx, followerID, followingID)
}

// uowRecorder records the names of committed writes without touching a store.
type uowRecorder struct {
	mu      sync.Mutex
	commits [][]string
	err     error
}

func (u *uowRecorder) Commit(_ context.Context, writes ...repository.Write) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	names := make([]string, len(writes))
	for i, w := range writes {
		names[i] = w.Name
	}
	u.commits = append(u.commits, names)
	return u.err
}

type invalidatorRecorder struct {
	mu    sync.Mutex
	paths [][]string
}

func (r *invalidatorRecorder) Invalidate(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths)
}

type deliveryRecorder struct {
	mu  sync.Mutex
	got []*models.Notification
}

func (r *deliveryRecorder) Deliver(n *models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
