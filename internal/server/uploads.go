package server

import (
	"context"
	"io"

	"socialgraph/internal/identity"
	"socialgraph/internal/middleware"
	"socialgraph/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ImageUploader stores an uploaded image and returns the URL posts reference.
type ImageUploader interface {
	Upload(ctx context.Context, actor identity.Actor, filename string, content []byte) (string, error)
}

// UploadImage accepts a multipart "image" field and returns its URL for use
// as a post's image_url.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	if !actor.Authenticated() {
		return respondError(c, models.NewUnauthenticatedError())
	}
	if s.images == nil {
		return respondError(c, models.NewStoreError("Image uploads are not configured", nil))
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return respondError(c, models.NewValidationError("No file uploaded"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, models.NewStoreError("Failed to read upload", err))
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, models.NewStoreError("Failed to read upload", err))
	}

	url, err := s.images.Upload(c.UserContext(), actor, fileHeader.Filename, content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": fiber.Map{"url": url}})
}
