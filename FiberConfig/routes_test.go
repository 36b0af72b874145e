package FiberConfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"TaskManager/Logging"
	"TaskManager/Metrics"
	"TaskManager/Models"
	"TaskManager/Workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret"
	testPassword = "correct-horse"
)

type apiFixture struct {
	t       *testing.T
	app     *fiber.App
	logFile string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db, err := Models.OpenInMemory(t.Name())
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&[]Models.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: hash, Role: "admin", IsActive: true},
		{ID: 2, Username: "bob", Email: "bob@example.com", PasswordHash: hash, Role: "member", IsActive: true},
	}).Error)

	logFile := filepath.Join(t.TempDir(), "requests.log")
	service := Workflow.NewService(db, Workflow.Options{Logger: Logging.Discard(), Metrics: Metrics.New()})
	app := New(Deps{
		Service:        service,
		Metrics:        Metrics.New(),
		Logger:         Logging.Discard(),
		JWTSecret:      testSecret,
		RequestTimeout: 5 * time.Second,
		LogFile:        logFile,
	})
	return &apiFixture{t: t, app: app, logFile: logFile}
}

// do sends a request and decodes a JSON object response when there is one
func (a *apiFixture) do(method, path, token string, body any) (*http.Response, map[string]any) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	resp.Body.Close()
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (a *apiFixture) login(username string) string {
	a.t.Helper()
	resp, body := a.do(http.MethodPost, "/api/login", "", fiber.Map{"login": username, "password": testPassword})
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(a.t, token)
	return token
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res, err := a.app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestLoginAndCurrentUser(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodGet, "/api/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not Logged In.", body["message"])

	resp, _ = a.do(http.MethodPost, "/api/login", "", fiber.Map{"login": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(http.MethodGet, "/api/user", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := a.login("alice@example.com")
	resp, body = a.do(http.MethodGet, "/api/user", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "password_hash")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	a := newAPI(t)

	resp, body := a.do(http.MethodPost, "/api/register", "", fiber.Map{
		"username": "carol", "email": "carol@example.com", "password": "long-enough",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "member", body["role"])

	resp, _ = a.do(http.MethodPost, "/api/register", "", fiber.Map{
		"username": "bob", "email": "other@example.com", "password": "long-enough",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = a.do(http.MethodPost, "/api/register", "", fiber.Map{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])
}

func TestTaskLifecycle(t *testing.T) {
	a := newAPI(t)
	alice := a.login("alice")
	bob := a.login("bob")

	resp, body := a.do(http.MethodPost, "/api/tasks", alice, fiber.Map{
		"task_name":   "Write report",
		"assigned_to": 2,
		"checklists":  []string{"Draft"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	task := body["task"].(map[string]any)
	taskID := uint(task["id"].(float64))
	created := body["checklists_created"].([]any)
	require.Len(t, created, 1)
	checklistID := uint(created[0].(map[string]any)["id"].(float64))

	completion := fmt.Sprintf("/api/checklists/%d/completion", checklistID)
	resp, body = a.do(http.MethodPatch, completion, bob, fiber.Map{"is_completed": true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, Workflow.NoActiveTimeTracking, body["message"])

	timer := fmt.Sprintf("/api/tasks/%d/timer", taskID)
	resp, _ = a.do(http.MethodPost, timer, bob, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = a.do(http.MethodPost, timer, bob, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = a.do(http.MethodPatch, completion, bob, fiber.Map{"is_completed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(Models.StatusCompleted), body["status"])
	assert.Equal(t, "1/1", body["checklist_progress"])

	resp, body = a.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(Models.StatusCompleted), body["status"])

	resp, body = a.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d/history", taskID), alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["history"])

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/tasks/%d/history/export", taskID), nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	res, err := a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), fmt.Sprintf("task_%d_history.xlsx", taskID))

	resp, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, body = a.do(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["tasks"], 1)

	resp, _ = a.do(http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadRequests(t *testing.T) {
	a := newAPI(t)
	alice := a.login("alice")

	resp, body := a.do(http.MethodPost, "/api/tasks", alice, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])

	resp, body = a.do(http.MethodGet, "/api/tasks/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid task ID", body["message"])

	resp, _ = a.do(http.MethodGet, "/api/tasks/404", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = a.do(http.MethodPatch, "/api/checklists/1/completion", alice, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogsAreAdminOnly(t *testing.T) {
	a := newAPI(t)
	line := fmt.Sprintf(`{"time":%q,"level":"INFO","msg":"http request","method":"GET","path":"/api/tasks/1","status":200,"latency_ms":3.5}`+"\n",
		time.Now().Format(time.RFC3339Nano))
	require.NoError(t, os.WriteFile(a.logFile, []byte(line), 0644))

	resp, _ := a.do(http.MethodGet, "/api/logs", a.login("bob"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	alice := a.login("alice")
	resp, body := a.do(http.MethodGet, "/api/logs", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total_logs"])
	assert.EqualValues(t, 1, body["total_groups"])

	resp, body = a.do(http.MethodGet, "/api/logs/stats", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["successful_requests"])

	resp, body = a.do(http.MethodGet, "/api/logs?date_from=yesterday", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "date_from")
}
