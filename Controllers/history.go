package Controllers

import (
	"fmt"

	"TaskManager/ChangeLog"
	"TaskManager/Workflow"

	"github.com/gofiber/fiber/v2"
)

// HistoryController serves the change log of tasks
type HistoryController struct {
	Service *Workflow.Service
}

// NewHistoryController creates a new HistoryController
func NewHistoryController(service *Workflow.Service) *HistoryController {
	return &HistoryController{Service: service}
}

// GetHistory returns the task's and its checklists' change records
// GET /api/tasks/:id/history
func (c *HistoryController) GetHistory(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	entries, err := c.Service.TaskHistory(ctx.UserContext(), id)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(fiber.Map{"task_id": id, "history": entries})
}

// ExportHistory downloads the same records as an Excel workbook
// GET /api/tasks/:id/history/export
func (c *HistoryController) ExportHistory(ctx *fiber.Ctx) error {
	id, ok := paramID(ctx, "id")
	if !ok {
		return badID(ctx, "task")
	}
	entries, err := c.Service.TaskHistory(ctx.UserContext(), id)
	if err != nil {
		return fail(ctx, err)
	}

	buf, err := ChangeLog.ExportXLSX(entries)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to generate Excel file",
		})
	}

	filename := fmt.Sprintf("task_%d_history.xlsx", id)
	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(buf.Bytes())
}
