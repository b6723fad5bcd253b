package server

import (
	"socialgraph/internal/cache"
	"socialgraph/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content  string  `json:"content" validate:"max=10000"`
	ImageURL *string `json:"image_url" validate:"omitempty,url"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

type toggleLikeRequest struct {
	ViewPath string `json:"view_path" query:"view_path"`
}

// ListPosts returns the feed. A failed read is an empty feed, never an error.
func (s *Server) ListPosts(c *fiber.Ctx) error {
	return respondData(c, s.engine.ListPosts(c.UserContext()))
}

func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	res := s.engine.CreatePost(c.UserContext(), middleware.ActorFrom(c), req.Content, req.ImageURL)
	return respondResult(c, fiber.StatusCreated, res)
}

func (s *Server) DeletePost(c *fiber.Ctx) error {
	res := s.engine.DeletePost(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	return respondResult(c, fiber.StatusOK, res)
}

func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req toggleLikeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, errInvalidBody)
		}
	}
	if req.ViewPath == "" {
		req.ViewPath = c.Query("view_path", cache.FeedView)
	}
	res := s.engine.ToggleLike(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), req.ViewPath)
	return respondResult(c, fiber.StatusOK, res)
}

// CreateComment leaves content checks to the engine so blank content is
// reported with the engine's own message.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errInvalidBody)
	}
	res := s.engine.CreateComment(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), req.Content)
	return respondResult(c, fiber.StatusCreated, res)
}
