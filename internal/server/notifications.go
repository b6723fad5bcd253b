package server

import (
	"socialgraph/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type dismissNotificationsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,uuid"`
}

func (s *Server) ListNotifications(c *fiber.Ctx) error {
	items, err := s.notifService.List(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, items)
}

func (s *Server) DismissNotifications(c *fiber.Ctx) error {
	var req dismissNotificationsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	n, err := s.notifService.Dismiss(c.UserContext(), middleware.ActorFrom(c), req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.Map{"dismissed": n})
}

// GetFeatureFlags returns the flag states evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := middleware.ActorFrom(c).ID()
	return respondData(c, s.featureFlags.Snapshot(userID))
}
