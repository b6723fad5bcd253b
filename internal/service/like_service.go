package service

import (
	"context"

	"socialgraph/internal/cache"
	"socialgraph/internal/database"
	"socialgraph/internal/identity"
	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/repository"
)

type LikeService struct {
	posts repository.PostRepository
	likes repository.LikeRepository
	views ViewInvalidator
	committer
}

func NewLikeService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	uow repository.UnitOfWork,
	views ViewInvalidator,
	delivery NotificationDelivery,
) *LikeService {
	return &LikeService{
		posts:     posts,
		likes:     likes,
		views:     views,
		committer: committer{uow: uow, delivery: delivery},
	}
}

// ToggleLike likes postID for the actor, or removes an existing like. It
// reports whether the post is liked afterwards. Liking notifies the post's
// author unless the author is the actor.
func (s *LikeService) ToggleLike(ctx context.Context, actor identity.Actor, postID, viewPath string) (bool, error) {
	userID, ok := actor.ID()
	if !ok {
		return false, models.NewUnauthenticatedError()
	}

	state, err := s.posts.LikeState(ctx, postID, userID)
	if repository.IsNotFound(err) {
		return false, models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return false, storeError("Failed to toggle like", err)
	}

	liked := !state.Liked
	if state.Liked {
		if err := s.likes.Delete(ctx, userID, postID); err != nil {
			return false, storeError("Failed to toggle like", err)
		}
	} else {
		note, _ := planNotification(models.NotificationLike, state.AuthorID, userID, &postID, nil)
		writes := []repository.Write{repository.InsertLike(&models.Like{UserID: userID, PostID: postID})}
		err := s.commit(ctx, writes, note)
		if database.IsUniqueViolation(err) {
			// A concurrent identical request inserted the like first.
			observability.ToggleRaces.WithLabelValues("like").Inc()
			return true, nil
		}
		if err != nil {
			return false, storeError("Failed to toggle like", err)
		}
	}

	invalidate(s.views, viewPath, cache.FeedView)
	return liked, nil
}
