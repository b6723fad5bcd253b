package server

import (
	"strconv"

	"socialgraph/internal/middleware"
	"socialgraph/internal/models"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	res := s.engine.ToggleFollow(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	return respondResult(c, fiber.StatusOK, res)
}

// GetMe returns the profile mirrored from the caller's verified identity.
func (s *Server) GetMe(c *fiber.Ctx) error {
	ext, ok := middleware.ExternalFrom(c)
	if !ok {
		return respondError(c, models.NewUnauthenticatedError())
	}
	user, err := s.userService.GetByExternalID(c.UserContext(), ext.Subject)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, user)
}

// SyncUser creates the local profile for the caller's verified identity, or
// returns the existing one.
func (s *Server) SyncUser(c *fiber.Ctx) error {
	ext, ok := middleware.ExternalFrom(c)
	if !ok {
		return respondError(c, models.NewUnauthenticatedError())
	}
	user, err := s.userService.SyncUser(c.UserContext(), *ext)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, user)
}

func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil || limit < 0 || limit > 20 {
		return respondError(c, models.NewValidationError("limit must be between 1 and 20"))
	}
	users, err := s.userService.Suggestions(c.UserContext(), middleware.ActorFrom(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, users)
}

// GetProfile returns a user's profile together with their posts, the posts
// they liked and whether the caller follows them.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actor := middleware.ActorFrom(c)

	user, err := s.userService.GetProfileByUsername(ctx, c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	posts, err := s.postService.ListUserPosts(ctx, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	liked, err := s.postService.ListLikedPosts(ctx, user.ID)
	if err != nil {
		return respondError(c, err)
	}
	following, err := s.followService.IsFollowing(ctx, actor, user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return respondData(c, fiber.Map{
		"user":         user,
		"posts":        posts,
		"liked_posts":  liked,
		"is_following": following,
	})
}
