package middleware

import (
	"log/slog"
	"time"

	"TaskManager/Logging"
	"TaskManager/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	Logger *slog.Logger
	// Skip logging for specific paths
	SkipPaths []string
}

// DefaultLogConfig returns a default configuration for the logging middleware
func DefaultLogConfig(logger *slog.Logger) LogConfig {
	return LogConfig{
		Logger:    logger,
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// RequestLogger tags every request with an id, stores a request-scoped logger in
// the user context and writes one line per request once the handler returns
func RequestLogger(cfg LogConfig) fiber.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}

	return func(c *fiber.Ctx) error {
		if skip[c.Path()] {
			return c.Next()
		}
		start := time.Now()

		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		logger := base.With("request_id", requestID)
		c.SetUserContext(Logging.WithContext(c.UserContext(), logger))

		err := c.Next()
		if err != nil {
			// let the app error handler write the response before logging its status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"url", c.OriginalURL(),
			"status", c.Response().StatusCode(),
			"latency_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"ip", c.IP(),
			"user_agent", c.Get(fiber.HeaderUserAgent),
		}
		if user, ok := c.Locals("user").(Models.User); ok {
			attrs = append(attrs, "user_id", user.ID, "username", user.Username)
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}

		level := slog.LevelInfo
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.UserContext(), level, Logging.RequestMessage, attrs...)
		return nil
	}
}
