package FiberConfig

import (
	"errors"
	"log/slog"
	"time"

	"TaskManager/Controllers"
	"TaskManager/Metrics"
	"TaskManager/Workflow"
	"TaskManager/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries everything the HTTP layer needs
type Deps struct {
	Service        *Workflow.Service
	Metrics        *Metrics.Metrics
	Logger         *slog.Logger
	JWTSecret      string
	RequestTimeout time.Duration
	// LogFile is the request log served by /api/logs
	LogFile string
}

func SetupRoutes(app *fiber.App, deps Deps) {
	db := deps.Service.DB()
	verify := middleware.Verify(deps.JWTSecret, db)

	// Initialize handlers
	authController := Controllers.NewAuthController(db, deps.JWTSecret)
	taskController := Controllers.NewTaskController(deps.Service)
	checklistController := Controllers.NewChecklistController(deps.Service)
	historyController := Controllers.NewHistoryController(deps.Service)
	logsController := Controllers.NewLogsController(deps.LogFile)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	// API group
	api := app.Group("/api", middleware.RequestTimeout(deps.RequestTimeout))

	// Auth routes
	api.Post("/register", authController.Register)
	api.Post("/login", authController.Login)
	api.Post("/logout", authController.Logout)
	api.Get("/user", verify, authController.User)

	// Task routes
	tasks := api.Group("/tasks", verify)
	tasks.Post("/", taskController.CreateTask)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Patch("/:id", taskController.UpdateTask)
	tasks.Delete("/:id", taskController.DeleteTask)
	tasks.Post("/:id/review", taskController.SendForReview)
	tasks.Post("/:id/timer", taskController.StartTimer)
	tasks.Get("/:id/checklists", checklistController.ListChecklists)
	tasks.Post("/:id/checklists", checklistController.CreateChecklists)
	tasks.Get("/:id/history", historyController.GetHistory)
	tasks.Get("/:id/history/export", historyController.ExportHistory)

	// Checklist routes
	checklists := api.Group("/checklists", verify)
	checklists.Patch("/:id", checklistController.RenameChecklist)
	checklists.Patch("/:id/completion", checklistController.UpdateCompletion)
	checklists.Delete("/:id", checklistController.DeleteChecklist)

	// Logs API routes
	logs := api.Group("/logs", verify, middleware.RequireRole("admin"))
	logs.Get("/", logsController.GetLogs)
	logs.Get("/stats", logsController.GetLogStats)
	logs.Get("/path/:path", logsController.GetLogsByPath)
}

// New builds the application with the global middleware and all routes
func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "TaskManager",
		ErrorHandler: errorHandler,
	})
	app.Use(middleware.RequestLogger(middleware.DefaultLogConfig(deps.Logger)))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression, // 2
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*", // Allow all origins
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		MaxAge:       300, // Max age for preflight requests caching (5 minutes)
	}))

	SetupRoutes(app, deps)
	return app
}

// errorHandler renders errors that escape handlers as {"message": ...}
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}
