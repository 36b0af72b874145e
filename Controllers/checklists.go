package Controllers

import (
	"TaskManager/Workflow"

	"github.com/gofiber/fiber/v2"
)

// ChecklistController handles checklist endpoints
type ChecklistController struct {
	Service *Workflow.Service
}

// NewChecklistController creates a new ChecklistController
func NewChecklistController(service *Workflow.Service) *ChecklistController {
	return &ChecklistController{Service: service}
}

type createChecklistsRequest struct {
	Checklists []string `json:"checklists" validate:"required,min=1,dive,required,max=255"`
}

type completionRequest struct {
	IsCompleted *bool `json:"is_completed" validate:"required"`
}

type renameChecklistRequest struct {
	ChecklistName string `json:"checklist_name" validate:"required,max=255"`
}

// CreateChecklists adds checklists to a task
// POST /api/tasks/:id/checklists
func (c *ChecklistController) CreateChecklists(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	var req createChecklistsRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	result, err := c.Service.CreateChecklists(ctx.UserContext(), currentUser(ctx).ID, id, req.Checklists)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(result)
}

// ListChecklists returns the task's checklists with their subtasks
// GET /api/tasks/:id/checklists
func (c *ChecklistController) ListChecklists(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	views, err := c.Service.ListChecklists(ctx.UserContext(), id)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"task_id": id, "checklists": views})
}

// UpdateCompletion checks or unchecks a leaf checklist
// PATCH /api/checklists/:id/completion
func (c *ChecklistController) UpdateCompletion(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "checklist")
	}
	var req completionRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	result, err := c.Service.UpdateChecklistCompletion(ctx.UserContext(), currentUser(ctx).ID, id, *req.IsCompleted)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(result)
}

// RenameChecklist changes a checklist's name
// PATCH /api/checklists/:id
func (c *ChecklistController) RenameChecklist(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "checklist")
	}
	var req renameChecklistRequest
	if ok, err := bind(ctx, &req); !ok {
		return err
	}

	checklist, err := c.Service.RenameChecklist(ctx.UserContext(), currentUser(ctx).ID, id, req.ChecklistName)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(checklist)
}

// DeleteChecklist tombstones a checklist and everything nested under it
// DELETE /api/checklists/:id
func (c *ChecklistController) DeleteChecklist(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "checklist")
	}
	result, err := c.Service.Delete(ctx.UserContext(), currentUser(ctx).ID, Workflow.DeleteInput{ChecklistID: &id})
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(result)
}
