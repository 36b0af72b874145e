package middleware

import (
	"context"
	"time"

	"TaskManager/Models"

	"github.com/gofiber/fiber/v2"
)

// RequestTimeout bounds the user context handed to handlers. Database calls
// made with ctx.UserContext() are cancelled once d elapses.
func RequestTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequireRole rejects authenticated users whose role is not one of roles.
// It must run after Verify.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(Models.User)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Not Logged In.",
			})
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You are not authorized to access this resource",
		})
	}
}
