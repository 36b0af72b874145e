package Controllers

import (
	"time"

	"TaskManager/Workflow"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// TaskController handles task endpoints
type TaskController struct {
	Service *Workflow.Service
}

// NewTaskController creates a new TaskController
func NewTaskController(service *Workflow.Service) *TaskController {
	return &TaskController{Service: service}
}

type createTaskRequest struct {
	TaskName         string   `json:"task_name" validate:"required,max=60"`
	Description      string   `json:"description"`
	AssignedTo       uint     `json:"assigned_to" validate:"required"`
	DueDate          *string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	IsReviewRequired bool     `json:"is_review_required"`
	Checklists       []string `json:"checklists" validate:"dive,required,max=255"`
	ChecklistID      *uint    `json:"checklist_id" validate:"omitempty,gt=0"`
}

type updateTaskRequest struct {
	AssignedTo       *uint   `json:"assigned_to" validate:"omitempty,gt=0"`
	DueDate          *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	TaskName         *string `json:"task_name" validate:"omitempty,min=1,max=60"`
	Description      *string `json:"description"`
	IsReviewRequired *bool   `json:"is_review_required"`
	Output           *string `json:"output"`
	IsReviewed       *bool   `json:"is_reviewed"`
}

type sendForReviewRequest struct {
	AssignedTo uint `json:"assigned_to" validate:"required"`
}

func parseDate(value *string) *datatypes.Date {
	if value == nil {
		return nil
	}
	// already checked by the datetime validator
	t, _ := time.Parse(time.DateOnly, *value)
	d := datatypes.Date(t)
	return &d
}

// CreateTask creates a task, optionally nested under a checklist
// POST /api/tasks
func (c *TaskController) CreateTask(ctx *fiber.Ctx) error {
	var req createTaskRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	result, err := c.Service.CreateTask(ctx.UserContext(), currentUser(ctx).ID, Workflow.CreateTaskInput{
		Name:             req.TaskName,
		Description:      req.Description,
		AssignedTo:       req.AssignedTo,
		DueDate:          parseDate(req.DueDate),
		IsReviewRequired: req.IsReviewRequired,
		ChecklistNames:   req.Checklists,
		ChecklistID:      req.ChecklistID,
	})
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(result)
}

// GetTask returns a task with its progress and the caller's latest session
// GET /api/tasks/:id
func (c *TaskController) GetTask(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	view, err := c.Service.GetTask(ctx.UserContext(), currentUser(ctx).ID, id)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(view)
}

// UpdateTask edits fields and finalizes or withdraws reviews
// PATCH /api/tasks/:id
func (c *TaskController) UpdateTask(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	var req updateTaskRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	result, err := c.Service.UpdateTask(ctx.UserContext(), currentUser(ctx).ID, Workflow.UpdateTaskInput{
		TaskID:           id,
		AssignedTo:       req.AssignedTo,
		DueDate:          parseDate(req.DueDate),
		Name:             req.TaskName,
		Description:      req.Description,
		IsReviewRequired: req.IsReviewRequired,
		Output:           req.Output,
		IsReviewed:       req.IsReviewed,
	})
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(result)
}

// SendForReview chains another review task above a review task
// POST /api/tasks/:id/review
func (c *TaskController) SendForReview(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	var req sendForReviewRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	created, err := c.Service.SendForReview(ctx.UserContext(), currentUser(ctx).ID, Workflow.SendForReviewInput{
		TaskID:     id,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":        "Sent for review",
		"review_task_id": created.ID,
		"task":           created,
	})
}

// StartTimer opens a work session on the task
// POST /api/tasks/:id/timer
func (c *TaskController) StartTimer(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	entry, err := c.Service.StartTimer(ctx.UserContext(), currentUser(ctx).ID, id)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Time tracking started",
		"log_id":     entry.ID,
		"start_time": entry.StartTime,
	})
}

// DeleteTask tombstones a task and everything nested under it
// DELETE /api/tasks/:id
func (c *TaskController) DeleteTask(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	result, err := c.Service.Delete(ctx.UserContext(), currentUser(ctx).ID, Workflow.DeleteInput{TaskID: &id})
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(result)
}
