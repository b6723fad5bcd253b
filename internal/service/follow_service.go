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

type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	views   ViewInvalidator
	committer
}

func NewFollowService(
	follows repository.FollowRepository,
	users repository.UserRepository,
	uow repository.UnitOfWork,
	views ViewInvalidator,
	delivery NotificationDelivery,
) *FollowService {
	return &FollowService{
		follows:   follows,
		users:     users,
		views:     views,
		committer: committer{uow: uow, delivery: delivery},
	}
}

// ToggleFollow follows targetID, or unfollows when the edge exists, and
// reports whether the actor follows the target afterwards.
func (s *FollowService) ToggleFollow(ctx context.Context, actor identity.Actor, targetID string) (bool, error) {
	userID, ok := actor.ID()
	if !ok {
		return false, models.NewUnauthenticatedError()
	}
	if targetID == userID {
		return false, models.NewSelfActionError("You cannot follow yourself")
	}

	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return false, storeError("Failed to toggle follow", err)
	}
	if !exists {
		return false, models.NewNotFoundError("User", targetID)
	}

	following, err := s.follows.Exists(ctx, userID, targetID)
	if err != nil {
		return false, storeError("Failed to toggle follow", err)
	}

	if following {
		if err := s.follows.Delete(ctx, userID, targetID); err != nil {
			return false, storeError("Failed to toggle follow", err)
		}
	} else {
		note, _ := planNotification(models.NotificationFollow, targetID, userID, nil, nil)
		writes := []repository.Write{repository.InsertFollow(&models.Follow{FollowerID: userID, FollowingID: targetID})}
		err := s.commit(ctx, writes, note)
		if database.IsUniqueViolation(err) {
			observability.ToggleRaces.WithLabelValues("follow").Inc()
			return true, nil
		}
		if err != nil {
			return false, storeError("Failed to toggle follow", err)
		}
	}

	invalidate(s.views, cache.FeedView)
	return !following, nil
}

// IsFollowing reports whether the actor follows targetID. Anonymous actors
// follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, actor identity.Actor, targetID string) (bool, error) {
	userID, ok := actor.ID()
	if !ok {
		return false, nil
	}
	following, err := s.follows.Exists(ctx, userID, targetID)
	if err != nil {
		return false, storeError("Failed to check follow status", err)
	}
	return following, nil
}
