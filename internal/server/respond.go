package server

import (
	"strings"

	"socialgraph/internal/engine"
	"socialgraph/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var (
	validate       = validator.New()
	errInvalidBody = models.NewValidationError("Invalid request body")
)

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case models.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized:
		return fiber.StatusForbidden
	case models.CodeSelfActionForbidden:
		return fiber.StatusUnprocessableEntity
	case models.CodeValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func respondResult(c *fiber.Ctx, status int, res engine.Result) error {
	if !res.Success {
		status = statusFor(res.Code)
	}
	return c.Status(status).JSON(res)
}

func respondError(c *fiber.Ctx, err error) error {
	code := models.ErrorCode(err)
	return c.Status(statusFor(code)).JSON(engine.Result{
		Success: false,
		Error:   models.ErrorMessage(err),
		Code:    code,
	})
}

func respondData(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// parseBody decodes and validates the request body into req.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errInvalidBody
	}
	if err := validate.Struct(req); err != nil {
		return models.NewValidationError(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "Invalid request"
	}
	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "Invalid field: " + strings.Join(fields, ", ")
}
