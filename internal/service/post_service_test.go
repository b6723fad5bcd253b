package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"socialgraph/internal/cache"
	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostService_CreatePost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	image := "https://cdn.example.com/a.png"
	blank := "   "

	tests := []struct {
		name    string
		actor   identity.Actor
		in      CreatePostInput
		wantErr string
	}{
		{"anonymous", identity.Anonymous, CreatePostInput{Content: "hi"}, models.CodeUnauthenticated},
		{"empty post", identity.For("u1"), CreatePostInput{Content: "  ", ImageURL: &blank}, models.CodeValidation},
		{"too long", identity.For("u1"), CreatePostInput{Content: strings.Repeat("x", maxPostLen+1)}, models.CodeValidation},
		{"too many runes", identity.For("u1"), CreatePostInput{Content: strings.Repeat("字", maxPostLen+1)}, models.CodeValidation},
		{"multibyte at limit", identity.For("u1"), CreatePostInput{Content: strings.Repeat("字", maxPostLen)}, ""},
		{"content only", identity.For("u1"), CreatePostInput{Content: " hello "}, ""},
		{"image only", identity.For("u1"), CreatePostInput{ImageURL: &image}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			uow := &uowRecorder{}
			views := &invalidatorRecorder{}
			svc := NewPostService(noopPostRepo(), uow, nil, views)

			post, err := svc.CreatePost(ctx, tt.actor, tt.in)
			if tt.wantErr != "" {
				assertCode(t, err, tt.wantErr)
				assert.Empty(t, uow.commits)
				assert.Empty(t, views.paths)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", post.AuthorID)
			assert.Equal(t, strings.TrimSpace(tt.in.Content), post.Content)
			assert.Equal(t, [][]string{{"insert post"}}, uow.commits, "a post never plans a notification")
			assert.Equal(t, [][]string{{cache.FeedView}}, views.paths)
		})
	}
}

func TestPostService_CreatePostStoreFailure(t *testing.T) {
	t.Parallel()
	uow := &uowRecorder{err: errors.New("connection reset")}
	views := &invalidatorRecorder{}
	svc := NewPostService(noopPostRepo(), uow, nil, views)

	_, err := svc.CreatePost(context.Background(), identity.For("u1"), CreatePostInput{Content: "hi"})
	assertCode(t, err, models.CodeStoreFailure)
	assert.Empty(t, views.paths)
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := noopPostRepo()
	repo.getAuthorIDFn = func(_ context.Context, id string) (string, error) {
		if id == "missing" {
			return "", gorm.ErrRecordNotFound
		}
		return "owner", nil
	}

	t.Run("anonymous", func(t *testing.T) {
		svc := NewPostService(repo, &uowRecorder{}, nil, nil)
		assertCode(t, svc.DeletePost(ctx, identity.Anonymous, "p1"), models.CodeUnauthenticated)
	})

	t.Run("missing post", func(t *testing.T) {
		svc := NewPostService(repo, &uowRecorder{}, nil, nil)
		assertCode(t, svc.DeletePost(ctx, identity.For("owner"), "missing"), models.CodeNotFound)
	})

	t.Run("not the author", func(t *testing.T) {
		uow := &uowRecorder{}
		svc := NewPostService(repo, uow, nil, nil)
		assertCode(t, svc.DeletePost(ctx, identity.For("intruder"), "p1"), models.CodeUnauthorized)
		assert.Empty(t, uow.commits)
	})

	t.Run("author", func(t *testing.T) {
		uow := &uowRecorder{}
		views := &invalidatorRecorder{}
		svc := NewPostService(repo, uow, nil, views)
		require.NoError(t, svc.DeletePost(ctx, identity.For("owner"), "p1"))
		assert.Equal(t, [][]string{{"delete post"}}, uow.commits)
		assert.Equal(t, [][]string{{cache.FeedView}}, views.paths)
	})

	t.Run("deleted concurrently", func(t *testing.T) {
		svc := NewPostService(repo, &uowRecorder{err: gorm.ErrRecordNotFound}, nil, nil)
		assertCode(t, svc.DeletePost(ctx, identity.For("owner"), "p1"), models.CodeNotFound)
	})
}

func TestPostService_ListPostsUsesFeedCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	calls := 0
	repo := noopPostRepo()
	repo.listFn = func(context.Context) ([]*models.Post, error) {
		calls++
		return []*models.Post{{ID: "p1", Content: "hello", LikedBy: []string{}}}, nil
	}
	svc := NewPostService(repo, &uowRecorder{}, cache.NewStore(rdb), nil)

	for i := 0; i < 3; i++ {
		posts, err := svc.ListPosts(context.Background())
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "p1", posts[0].ID)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(cache.ViewKey(cache.FeedView, 0)))
}

func TestPostService_ListPostsFailure(t *testing.T) {
	t.Parallel()
	repo := noopPostRepo()
	repo.listFn = func(context.Context) ([]*models.Post, error) { return nil, errors.New("db down") }
	svc := NewPostService(repo, &uowRecorder{}, nil, nil)

	posts, err := svc.ListPosts(context.Background())
	assertCode(t, err, models.CodeStoreFailure)
	assert.Nil(t, posts)
}

func TestPostService_ListPostsEmpty(t *testing.T) {
	t.Parallel()
	svc := NewPostService(noopPostRepo(), &uowRecorder{}, nil, nil)
	posts, err := svc.ListPosts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

var _ repository.PostRepository = (*postRepoStub)(nil)
