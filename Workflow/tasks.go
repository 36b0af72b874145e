package Workflow

import (
	"context"
	"fmt"
	"strings"

	"TaskManager/Models"
	"TaskManager/TimeTracking"

	"gorm.io/datatypes"
)

const maxTaskName = 60

// CreateTaskInput describes a new task. ChecklistID nests it under an existing checklist.
type CreateTaskInput struct {
	Name             string
	Description      string
	AssignedTo       uint
	DueDate          *datatypes.Date
	IsReviewRequired bool
	ChecklistNames   []string
	ChecklistID      *uint
}

// CreateTaskResult is returned by CreateTask
type CreateTaskResult struct {
	Task           Models.Task        `json:"task"`
	Checklists     []Models.Checklist `json:"checklists_created"`
	ReviewTaskID   *uint              `json:"review_task_id"`
	Progress       string             `json:"checklist_progress"`
	ParentTaskID   *uint              `json:"parent_task_id"`
	ParentStatus   *Models.TaskStatus `json:"parent_task_status"`
	ParentProgress *string            `json:"parent_checklist_progress"`
}

// CreateTask creates a To_Do task with its checklists, its review task when
// review is required, and optionally nests it under a checklist
func (s *Service) CreateTask(ctx context.Context, actor uint, in CreateTaskInput) (*CreateTaskResult, error) {
	var result *CreateTaskResult
	err := s.inTx(ctx, "create_task", actor, func(p *propagation) error {
		var parent *Models.Task
		if in.ChecklistID != nil {
			checklist, err := findChecklist(p.tx, *in.ChecklistID)
			if err != nil {
				return err
			}
			if checklist == nil {
				return notFound("Checklist not found")
			}
			if parent, err = checklistOwner(p.tx, checklist.ID); err != nil {
				return err
			}
			if parent == nil {
				return notFound("Checklist is not linked to any parent task")
			}
			if !parent.CanModify(actor) {
				return forbidden("Task not found or unauthorized")
			}
			if err := p.requireOpenSession(parent.ID); err != nil {
				return err
			}
			if parent.IsReview() {
				return invalidState("Cannot add subtask to a review task")
			}
		}

		task := Models.Task{
			Name:             strings.TrimSpace(in.Name),
			Description:      in.Description,
			Status:           Models.StatusToDo,
			PreviousStatus:   Models.StatusToDo,
			TaskType:         Models.TaskTypeNormal,
			AssignedTo:       in.AssignedTo,
			CreatedBy:        actor,
			DueDate:          in.DueDate,
			IsReviewRequired: in.IsReviewRequired,
		}
		if err := p.tx.Create(&task).Error; err != nil {
			return err
		}
		p.changes.TaskChange(p.tx, task.ID, "status", nil, task.Status, actor)

		result = &CreateTaskResult{Checklists: make([]Models.Checklist, 0, len(in.ChecklistNames))}
		for _, name := range in.ChecklistNames {
			checklist := Models.Checklist{Name: strings.TrimSpace(name), CreatedBy: actor}
			if err := p.tx.Create(&checklist).Error; err != nil {
				return err
			}
			if err := p.tx.Create(&Models.TaskChecklistLink{ParentTaskID: &task.ID, ChecklistID: &checklist.ID}).Error; err != nil {
				return err
			}
			result.Checklists = append(result.Checklists, checklist)
		}

		if task.IsReviewRequired {
			review, err := p.createReviewTask(&task)
			if err != nil {
				return err
			}
			result.ReviewTaskID = &review.ID
		}

		if parent != nil {
			if err := p.tx.Create(&Models.TaskChecklistLink{ChecklistID: in.ChecklistID, SubTaskID: &task.ID}).Error; err != nil {
				return err
			}
			// a new To_Do subtask leaves the checklist incomplete
			if err := p.propagateIncompleteUpwards(*in.ChecklistID, map[uint]bool{}); err != nil {
				return err
			}
			reloaded, err := p.loadTask(parent.ID)
			if err != nil {
				return err
			}
			parent = reloaded
			progress, err := TaskProgress(p.tx, parent.ID)
			if err != nil {
				return err
			}
			result.ParentTaskID = &parent.ID
			result.ParentStatus = &parent.Status
			result.ParentProgress = &progress
		}

		result.Task = task
		result.Progress = Progress(0, len(result.Checklists))
		return nil
	})
	return result, err
}

// createReviewTask opens the review gate for a Normal task, assigned to its creator
func (p *propagation) createReviewTask(task *Models.Task) (*Models.Task, error) {
	review := Models.Task{
		Name:           fmt.Sprintf("Review - %s", task.Name),
		Status:         Models.StatusNew,
		PreviousStatus: Models.StatusNew,
		TaskType:       Models.TaskTypeReview,
		ParentTaskID:   &task.ID,
		AssignedTo:     task.CreatedBy,
		CreatedBy:      p.actor,
		DueDate:        task.DueDate,
	}
	if name := []rune(review.Name); len(name) > maxTaskName {
		review.Name = string(name[:maxTaskName])
	}
	if err := p.tx.Create(&review).Error; err != nil {
		return nil, err
	}
	p.changes.TaskChange(p.tx, review.ID, "status", nil, review.Status, p.actor)
	return &review, nil
}

// UpdateTaskInput carries optional field changes. Nil fields are left untouched.
type UpdateTaskInput struct {
	TaskID           uint
	AssignedTo       *uint
	DueDate          *datatypes.Date
	Name             *string
	Description      *string
	IsReviewRequired *bool
	Output           *string
	IsReviewed       *bool
}

// UpdateTaskResult is returned by UpdateTask
type UpdateTaskResult struct {
	Task            Models.Task          `json:"task"`
	UpdatedFields   map[string]any       `json:"updated_fields"`
	ParentTaskChain []TaskState          `json:"parent_task_chain"`
	Session         TimeTracking.Session `json:"session"`
}

// UpdateTask edits task fields. The creator may change assignment, due date, name,
// description and the review requirement; the assignee may change the output.
// Either may finalize or withdraw a review on the last review task of a chain.
func (s *Service) UpdateTask(ctx context.Context, actor uint, in UpdateTaskInput) (*UpdateTaskResult, error) {
	var result *UpdateTaskResult
	err := s.inTx(ctx, "update_task", actor, func(p *propagation) error {
		task, err := p.loadTask(in.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return notFound("Task not found")
		}
		isCreator := task.CreatedBy == actor
		isAssignee := task.AssignedTo == actor
		if !isCreator && !isAssignee {
			return forbidden("You don't have permission to update this task")
		}
		if err := p.checkUpdate(task, in, isCreator); err != nil {
			return err
		}

		result = &UpdateTaskResult{UpdatedFields: map[string]any{}, ParentTaskChain: []TaskState{}}
		if isCreator {
			if err := p.applyCreatorFields(task, in, result.UpdatedFields); err != nil {
				return err
			}
		}
		if isAssignee && in.Output != nil {
			if err := p.setField(task, "output", "output", task.Output, *in.Output); err != nil {
				return err
			}
			task.Output = *in.Output
			result.UpdatedFields["output"] = *in.Output
		}

		if in.IsReviewed != nil {
			var chain []TaskState
			if *in.IsReviewed {
				chain, err = p.finalizeReview(task)
			} else {
				chain, err = p.reverseCompletionFromReview(task)
			}
			if err != nil {
				return err
			}
			if chain != nil {
				result.ParentTaskChain = chain
			}
			result.UpdatedFields["is_reviewed"] = *in.IsReviewed
		}

		current, err := p.loadTask(task.ID)
		if err != nil {
			return err
		}
		latest, err := p.gate.Latest(p.tx, task.ID, actor)
		if err != nil {
			return err
		}
		result.Task = *current
		result.Session = TimeTracking.Describe(latest)
		return nil
	})
	return result, err
}

// checkUpdate refuses the update before anything is written
func (p *propagation) checkUpdate(task *Models.Task, in UpdateTaskInput, isCreator bool) error {
	if isCreator && in.IsReviewRequired != nil && !*in.IsReviewRequired && !task.IsReview() {
		review, err := reviewChild(p.tx, task.ID)
		if err != nil {
			return err
		}
		if review != nil {
			chained, err := reviewChild(p.tx, review.ID)
			if err != nil {
				return err
			}
			if chained != nil {
				return invalidState("Cannot remove review requirement - there are tasks linked to the review task")
			}
		}
	}

	if in.IsReviewed == nil {
		return nil
	}
	if !task.IsReview() {
		return invalidState("Only review tasks can be marked as reviewed")
	}
	var err error
	if *in.IsReviewed {
		err = p.requireOpenSession(task.ID)
	} else {
		err = p.requireAnySession(task.ID)
	}
	if err != nil {
		return err
	}
	chained, err := reviewChild(p.tx, task.ID)
	if err != nil {
		return err
	}
	if chained != nil {
		return invalidState("Only the last review task in the chain can mark this")
	}
	if *in.IsReviewed {
		checklists, err := taskChecklists(p.tx, task.ID)
		if err != nil {
			return err
		}
		if !allCompleted(checklists) {
			return invalidState("All checklists must be completed before marking reviewed")
		}
	}
	return nil
}

func (p *propagation) applyCreatorFields(task *Models.Task, in UpdateTaskInput, updated map[string]any) error {
	if in.AssignedTo != nil {
		if err := p.setField(task, "assigned_to", "assigned_to", task.AssignedTo, *in.AssignedTo); err != nil {
			return err
		}
		task.AssignedTo = *in.AssignedTo
		updated["assigned_to"] = *in.AssignedTo
	}
	if in.DueDate != nil {
		if err := p.setField(task, "due_date", "due_date", task.DueDate, in.DueDate); err != nil {
			return err
		}
		task.DueDate = in.DueDate
		updated["due_date"] = in.DueDate
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := p.setField(task, "name", "task_name", task.Name, name); err != nil {
			return err
		}
		task.Name = name
		updated["task_name"] = name
	}
	if in.Description != nil {
		if err := p.setField(task, "description", "description", task.Description, *in.Description); err != nil {
			return err
		}
		task.Description = *in.Description
		updated["description"] = *in.Description
	}
	if in.IsReviewRequired != nil && !task.IsReview() {
		if err := p.toggleReviewRequired(task, *in.IsReviewRequired); err != nil {
			return err
		}
		updated["is_review_required"] = *in.IsReviewRequired
	}
	return nil
}

// setField persists one column and logs it under field
func (p *propagation) setField(task *Models.Task, column, field string, old, new any) error {
	if err := p.tx.Model(task).Update(column, new).Error; err != nil {
		return err
	}
	p.changes.TaskChange(p.tx, task.ID, field, old, new, p.actor)
	return nil
}

// toggleReviewRequired adds or removes the review gate of a Normal task
func (p *propagation) toggleReviewRequired(task *Models.Task, required bool) error {
	if task.IsReviewRequired != required {
		if err := p.setField(task, "is_review_required", "is_review_required", task.IsReviewRequired, required); err != nil {
			return err
		}
		task.IsReviewRequired = required
	}

	if required {
		var tombstoned Models.Task
		err := p.tx.Where("parent_task_id = ? AND task_type = ?", task.ID, Models.TaskTypeReview).
			Order("id DESC").Limit(1).Find(&tombstoned).Error
		if err != nil {
			return err
		}
		switch {
		case tombstoned.ID == 0:
			if _, err := p.createReviewTask(task); err != nil {
				return err
			}
		case tombstoned.IsDelete:
			if err := p.tx.Model(&tombstoned).Update("is_delete", false).Error; err != nil {
				return err
			}
			p.changes.TaskChange(p.tx, tombstoned.ID, "is_delete", true, false, p.actor)
		}
		if task.Status == Models.StatusCompleted {
			// a finished task now waits for its reviewer
			return p.updateParentTaskStatus(task.ID, newWave())
		}
		return nil
	}

	review, err := reviewChild(p.tx, task.ID)
	if err != nil {
		return err
	}
	if review != nil {
		if err := p.tx.Model(review).Update("is_delete", true).Error; err != nil {
			return err
		}
		p.changes.TaskChange(p.tx, review.ID, "is_delete", false, true, p.actor)
	}
	if task.Status == Models.StatusInReview {
		return p.updateParentTaskStatus(task.ID, newWave())
	}
	return nil
}

// finalizeReview marks the last review task of a chain reviewed and completes
// everything it was gating
func (p *propagation) finalizeReview(review *Models.Task) ([]TaskState, error) {
	checklists, err := taskChecklists(p.tx, review.ID)
	if err != nil {
		return nil, err
	}
	for i := range checklists {
		if err := p.setCompleted(&checklists[i], true); err != nil {
			return nil, err
		}
	}
	if err := p.setReviewed(review, true); err != nil {
		return nil, err
	}
	if err := p.setStatus(review, Models.StatusCompleted); err != nil {
		return nil, err
	}
	if err := p.closeSession(review.ID); err != nil {
		return nil, err
	}
	return p.propagateCompletionUpwards(review)
}

// TaskView is a task with its derived progress and the caller's latest session
type TaskView struct {
	Models.Task
	Progress     string               `json:"checklist_progress"`
	ReviewTaskID *uint                `json:"review_task_id"`
	Session      TimeTracking.Session `json:"session"`
}

// GetTask reads a live task
func (s *Service) GetTask(ctx context.Context, actor uint, taskID uint) (*TaskView, error) {
	db := s.db.WithContext(ctx)
	task, err := findTask(db, taskID)
	if err != nil {
		return nil, internal(err)
	}
	if task == nil {
		return nil, notFound("Task not found")
	}
	progress, err := TaskProgress(db, task.ID)
	if err != nil {
		return nil, internal(err)
	}
	view := &TaskView{Task: *task, Progress: progress}
	review, err := reviewChild(db, task.ID)
	if err != nil {
		return nil, internal(err)
	}
	if review != nil {
		view.ReviewTaskID = &review.ID
	}
	latest, err := s.gate.Latest(db, task.ID, actor)
	if err != nil {
		return nil, internal(err)
	}
	view.Session = TimeTracking.Describe(latest)
	return view, nil
}
