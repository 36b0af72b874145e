package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TaskManager/Logging"
	"TaskManager/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(Logging.NewHandler(&buf, "json", slog.LevelInfo))

	app := fiber.New()
	app.Use(RequestLogger(DefaultLogConfig(logger)))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/things", func(c *fiber.Ctx) error {
		c.Locals("user", Models.User{ID: 4, Username: "dana"})
		return c.Status(fiber.StatusTeapot).SendString("short and stout")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/things?x=1", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(fiber.HeaderXRequestID))

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec Logging.RequestRecord
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, Logging.RequestMessage, rec.Msg)
	assert.Equal(t, http.MethodGet, rec.Method)
	assert.Equal(t, "/api/things", rec.Path)
	assert.Equal(t, "/api/things?x=1", rec.URL)
	assert.Equal(t, fiber.StatusTeapot, rec.Status)
	assert.Equal(t, "req-123", rec.RequestID)
	assert.Equal(t, uint(4), rec.UserID)
	assert.Equal(t, "dana", rec.Username)
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(DefaultLogConfig(Logging.Discard())))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(fiber.HeaderXRequestID), 36)
}

func TestRequireRole(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals("user", Models.User{ID: 1, Role: role})
		}
		return c.Next()
	})
	app.Get("/admin", RequireRole("admin"), func(c *fiber.Ctx) error { return c.SendString("hi") })

	cases := map[string]int{
		"":       fiber.StatusUnauthorized,
		"member": fiber.StatusForbidden,
		"admin":  fiber.StatusOK,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if role != "" {
			req.Header.Set("X-Test-Role", role)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "role %q", role)
	}
}

func TestRequestTimeoutBoundsUserContext(t *testing.T) {
	app := fiber.New()
	app.Use(RequestTimeout(50 * time.Millisecond))
	app.Get("/", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
