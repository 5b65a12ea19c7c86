package middleware

import (
	"crypto/subtle"

	"linknexy/config"

	"github.com/gofiber/fiber/v2"
)

// RequireAPIKey guards the operational pipeline endpoints. Outside
// production an empty configured key disables the check so local
// development does not need one.
func RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := config.AppConfig.PipelineAPIKey
		if expected == "" && config.AppConfig.Environment != "production" {
			return c.Next()
		}

		provided := c.Get("X-Api-Key")
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "Unauthorized",
				"message": "A valid X-Api-Key header is required",
			})
		}

		return c.Next()
	}
}
