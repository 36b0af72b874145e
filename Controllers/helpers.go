package Controllers

import (
	"strconv"

	"TaskManager/Models"
	"TaskManager/Workflow"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// bind parses the JSON body into dst and validates it. On failure the 400
// response has already been written and the returned bool is false.
func bind(ctx *fiber.Ctx, dst any) (bool, error) {
	if err := ctx.BodyParser(dst); err != nil {
		return false, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(dst); err != nil {
		return false, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	return true, nil
}

// currentUser returns the user stored by middleware.Verify
func currentUser(ctx *fiber.Ctx) Models.User {
	user, _ := ctx.Locals("user").(Models.User)
	return user
}

func paramID(ctx *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func badID(ctx *fiber.Ctx, what string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid " + what + " ID"})
}

// StatusFor maps a workflow error kind to its HTTP status
func StatusFor(kind Workflow.Kind) int {
	switch kind {
	case Workflow.KindNotFound:
		return fiber.StatusNotFound
	case Workflow.KindForbidden:
		return fiber.StatusForbidden
	case Workflow.KindConflict:
		return fiber.StatusConflict
	case Workflow.KindInvalidState:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes a workflow error as {"message": ...}
func fail(ctx *fiber.Ctx, err error) error {
	return ctx.Status(StatusFor(Workflow.KindOf(err))).JSON(fiber.Map{
		"message": Workflow.MessageOf(err),
	})
}
