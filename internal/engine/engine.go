// Package engine is the operation boundary of the social interaction core.
// Every call returns a well-formed Result; no error escapes to the caller.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/service"

	"go.opentelemetry.io/otel/attribute"
)

// Result is the uniform outcome envelope of a mutating operation.
type Result struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
	Post      *models.Post    `json:"post,omitempty"`
	Comment   *models.Comment `json:"comment,omitempty"`
	Liked     *bool           `json:"liked,omitempty"`
	Following *bool           `json:"following,omitempty"`
}

// Engine exposes createPost, listPosts, deletePost, toggleLike, toggleFollow
// and createComment.
type Engine struct {
	posts    *service.PostService
	likes    *service.LikeService
	follows  *service.FollowService
	comments *service.CommentService
}

func New(
	posts *service.PostService,
	likes *service.LikeService,
	follows *service.FollowService,
	comments *service.CommentService,
) *Engine {
	return &Engine{posts: posts, likes: likes, follows: follows, comments: comments}
}

func (e *Engine) CreatePost(ctx context.Context, actor identity.Actor, content string, imageRef *string) Result {
	return e.run(ctx, "create_post", actor, func(ctx context.Context) (Result, error) {
		post, err := e.posts.CreatePost(ctx, actor, service.CreatePostInput{Content: content, ImageURL: imageRef})
		return Result{Post: post}, err
	})
}

// ListPosts returns the enriched feed, or an empty slice when it cannot be read.
func (e *Engine) ListPosts(ctx context.Context) []*models.Post {
	var posts []*models.Post
	e.run(ctx, "list_posts", identity.Anonymous, func(ctx context.Context) (Result, error) {
		var err error
		posts, err = e.posts.ListPosts(ctx)
		return Result{}, err
	})
	if posts == nil {
		return []*models.Post{}
	}
	return posts
}

func (e *Engine) DeletePost(ctx context.Context, actor identity.Actor, postID string) Result {
	return e.run(ctx, "delete_post", actor, func(ctx context.Context) (Result, error) {
		return Result{}, e.posts.DeletePost(ctx, actor, postID)
	}, attribute.String("post.id", postID))
}

func (e *Engine) ToggleLike(ctx context.Context, actor identity.Actor, postID, viewPath string) Result {
	return e.run(ctx, "toggle_like", actor, func(ctx context.Context) (Result, error) {
		liked, err := e.likes.ToggleLike(ctx, actor, postID, viewPath)
		return Result{Liked: &liked}, err
	}, attribute.String("post.id", postID))
}

func (e *Engine) ToggleFollow(ctx context.Context, actor identity.Actor, targetUserID string) Result {
	return e.run(ctx, "toggle_follow", actor, func(ctx context.Context) (Result, error) {
		following, err := e.follows.ToggleFollow(ctx, actor, targetUserID)
		return Result{Following: &following}, err
	}, attribute.String("target.id", targetUserID))
}

func (e *Engine) CreateComment(ctx context.Context, actor identity.Actor, postID, content string) Result {
	return e.run(ctx, "create_comment", actor, func(ctx context.Context) (Result, error) {
		comment, err := e.comments.CreateComment(ctx, actor, service.CreateCommentInput{PostID: postID, Content: content})
		return Result{Comment: comment}, err
	}, attribute.String("post.id", postID))
}

// run traces, times and counts one operation and folds any failure, panics
// included, into the envelope.
func (e *Engine) run(ctx context.Context, op string, actor identity.Actor, fn func(context.Context) (Result, error), attrs ...attribute.KeyValue) (res Result) {
	span, ctx := observability.NewSpan(ctx, "engine."+op)
	defer span.End()
	defer observability.TrackOperation(op)()

	span.AddAttributes(append(attrs, attribute.String("actor", actor.String()))...)
	if id, ok := actor.ID(); ok {
		ctx = observability.WithUserID(ctx, id)
	}

	defer func() {
		if r := recover(); r != nil {
			res = e.fail(ctx, span, op, models.NewStoreError("Internal server error", fmt.Errorf("panic: %v", r)))
		}
	}()

	out, err := fn(ctx)
	if err != nil {
		return e.fail(ctx, span, op, err)
	}
	observability.EngineOperations.WithLabelValues(op, "ok").Inc()
	out.Success = true
	return out
}

func (e *Engine) fail(ctx context.Context, span *observability.Span, op string, err error) Result {
	code := models.ErrorCode(err)
	span.Fail(code, err, code == models.CodeStoreFailure)
	observability.EngineOperations.WithLabelValues(op, code).Inc()

	level := slog.LevelWarn
	if code == models.CodeStoreFailure {
		level = slog.LevelError
	}
	observability.Logger.Log(ctx, level, "engine operation failed",
		slog.String("operation", op),
		slog.String("code", code),
		slog.String("error", err.Error()))

	return Result{Success: false, Error: models.ErrorMessage(err), Code: code}
}
