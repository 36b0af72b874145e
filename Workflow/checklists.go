package Workflow

import (
	"context"
	"strings"

	"TaskManager/Models"
	"TaskManager/TimeTracking"
)

// ChecklistsResult is returned by CreateChecklists
type ChecklistsResult struct {
	TaskID     uint                 `json:"task_id"`
	TaskName   string               `json:"task_name"`
	Status     Models.TaskStatus    `json:"status"`
	Checklists []Models.Checklist   `json:"checklists"`
	Progress   string               `json:"checklist_progress"`
	Session    TimeTracking.Session `json:"session"`
}

// CreateChecklists adds checklists to a task. On a review task they are added to
// the reviewed task instead, which goes back to To_Do while the reviewer waits in
// In_ReEdit.
func (s *Service) CreateChecklists(ctx context.Context, actor uint, taskID uint, names []string) (*ChecklistsResult, error) {
	var result *ChecklistsResult
	err := s.inTx(ctx, "create_checklist", actor, func(p *propagation) error {
		task, err := p.loadTask(taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return notFound("Task not found")
		}
		if !task.CanModify(actor) {
			return forbidden("You don't have permission to add checklists")
		}

		target := task
		if task.IsReview() {
			if err := p.requireOpenSession(task.ID); err != nil {
				return err
			}
			if task.ParentTaskID == nil {
				return notFound("Parent task not found")
			}
			if target, err = p.loadTask(*task.ParentTaskID); err != nil {
				return err
			}
			if target == nil {
				return notFound("Parent task not found")
			}
		} else if task.AssignedTo == actor && task.Status == Models.StatusToDo && task.PreviousStatus == Models.StatusToDo {
			// an assignee who has not started yet must start the timer first
			if err := p.requireOpenSession(task.ID); err != nil {
				return err
			}
		}

		wasFinished := isFinished(target.Status)
		created := make([]Models.Checklist, 0, len(names))
		for _, name := range names {
			checklist := Models.Checklist{Name: strings.TrimSpace(name), CreatedBy: actor}
			if err := p.tx.Create(&checklist).Error; err != nil {
				return err
			}
			if err := p.tx.Create(&Models.TaskChecklistLink{ParentTaskID: &target.ID, ChecklistID: &checklist.ID}).Error; err != nil {
				return err
			}
			created = append(created, checklist)
		}

		if task.IsReview() {
			if err := p.requestChanges(task, target); err != nil {
				return err
			}
		} else if wasFinished && len(created) > 0 {
			if err := p.propagateIncompleteUpwards(created[0].ID, map[uint]bool{}); err != nil {
				return err
			}
		}

		if task, err = p.loadTask(task.ID); err != nil {
			return err
		}
		progress, err := TaskProgress(p.tx, task.ID)
		if err != nil {
			return err
		}
		latest, err := p.gate.Latest(p.tx, task.ID, actor)
		if err != nil {
			return err
		}
		result = &ChecklistsResult{
			TaskID:     task.ID,
			TaskName:   task.Name,
			Status:     task.Status,
			Checklists: created,
			Progress:   progress,
			Session:    TimeTracking.Describe(latest),
		}
		return nil
	})
	return result, err
}

// requestChanges sends the reviewed task back to work and parks the reviewer
func (p *propagation) requestChanges(review, reviewed *Models.Task) error {
	if review.Status != Models.StatusInReEdit {
		if err := p.setStatus(review, Models.StatusInReEdit); err != nil {
			return err
		}
		if err := p.closeSession(review.ID); err != nil {
			return err
		}
	}
	// a finalized review has to be finalized again after the rework
	if err := p.setReviewed(review, false); err != nil {
		return err
	}

	wasFinished := isFinished(reviewed.Status)
	if err := p.setStatus(reviewed, Models.StatusToDo); err != nil {
		return err
	}
	if !wasFinished {
		return nil
	}
	containing, err := containingChecklists(p.tx, reviewed.ID)
	if err != nil {
		return err
	}
	visited := map[uint]bool{}
	for _, checklistID := range containing {
		if err := p.propagateIncompleteUpwards(checklistID, visited); err != nil {
			return err
		}
	}
	return nil
}

// CompletionResult is returned by UpdateChecklistCompletion
type CompletionResult struct {
	ChecklistID  uint                 `json:"checklist_id"`
	ParentTaskID uint                 `json:"parent_task_id"`
	Status       Models.TaskStatus    `json:"status"`
	Progress     string               `json:"checklist_progress"`
	Session      TimeTracking.Session `json:"session"`
}

// UpdateChecklistCompletion checks or unchecks a leaf checklist and cascades the
// result through the task graph
func (s *Service) UpdateChecklistCompletion(ctx context.Context, actor uint, checklistID uint, completed bool) (*CompletionResult, error) {
	var result *CompletionResult
	err := s.inTx(ctx, "update_checklist_completion", actor, func(p *propagation) error {
		checklist, err := findChecklist(p.tx, checklistID)
		if err != nil {
			return err
		}
		if checklist == nil {
			return notFound("Checklist not found")
		}
		owner, err := checklistOwner(p.tx, checklist.ID)
		if err != nil {
			return err
		}
		if owner == nil {
			return notFound("Checklist is not linked to any parent task")
		}
		if !owner.CanModify(actor) {
			return forbidden("You don't have permission to update this checklist")
		}
		if completed {
			err = p.requireOpenSession(owner.ID)
		} else {
			err = p.requireAnySession(owner.ID)
		}
		if err != nil {
			return err
		}
		derived, err := hasLiveSubtasks(p.tx, checklist.ID)
		if err != nil {
			return err
		}
		if derived {
			return invalidState("Checklist has sub-tasks and cannot be marked as complete/incomplete directly")
		}

		if err := p.setCompleted(checklist, completed); err != nil {
			return err
		}
		if !owner.IsReview() {
			if completed {
				err = p.updateParentTaskStatus(owner.ID, newWave())
			} else {
				err = p.propagateIncompleteUpwards(checklist.ID, map[uint]bool{})
			}
			if err != nil {
				return err
			}
		}

		if owner, err = p.loadTask(owner.ID); err != nil {
			return err
		}
		progress, err := TaskProgress(p.tx, owner.ID)
		if err != nil {
			return err
		}
		latest, err := p.gate.Latest(p.tx, owner.ID, actor)
		if err != nil {
			return err
		}
		result = &CompletionResult{
			ChecklistID:  checklist.ID,
			ParentTaskID: owner.ID,
			Status:       owner.Status,
			Progress:     progress,
			Session:      TimeTracking.Describe(latest),
		}
		return nil
	})
	return result, err
}

// RenameChecklist changes a checklist's name. Only its creator may do so.
func (s *Service) RenameChecklist(ctx context.Context, actor uint, checklistID uint, name string) (*Models.Checklist, error) {
	var result *Models.Checklist
	err := s.inTx(ctx, "rename_checklist", actor, func(p *propagation) error {
		checklist, err := findChecklist(p.tx, checklistID)
		if err != nil {
			return err
		}
		if checklist == nil {
			return notFound("Checklist not found")
		}
		if checklist.CreatedBy != actor {
			return forbidden("Only the checklist creator can rename it")
		}
		name = strings.TrimSpace(name)
		if checklist.Name != name {
			old := checklist.Name
			checklist.Name = name
			if err := p.tx.Model(checklist).Update("name", name).Error; err != nil {
				return err
			}
			p.changes.ChecklistChange(p.tx, checklist.ID, "checklist_name", old, name, actor)
		}
		result = checklist
		return nil
	})
	return result, err
}

// SubtaskView is a task nested under a checklist
type SubtaskView struct {
	TaskID     uint              `json:"task_id"`
	TaskName   string            `json:"task_name"`
	Status     Models.TaskStatus `json:"status"`
	AssignedTo uint              `json:"assigned_to"`
	Progress   string            `json:"checklist_progress"`
}

// ChecklistView is a checklist with its subtasks
type ChecklistView struct {
	Models.Checklist
	Subtasks    []SubtaskView `json:"subtasks"`
	Progress    string        `json:"subtask_progress"`
	DeleteAllow bool          `json:"delete_allow"`
}

// ListChecklists returns a task's live checklists with their subtasks
func (s *Service) ListChecklists(ctx context.Context, taskID uint) ([]ChecklistView, error) {
	db := s.db.WithContext(ctx)
	task, err := findTask(db, taskID)
	if err != nil {
		return nil, internal(err)
	}
	if task == nil {
		return nil, notFound("Task not found")
	}

	checklists, err := taskChecklists(db, task.ID)
	if err != nil {
		return nil, internal(err)
	}
	views := make([]ChecklistView, 0, len(checklists))
	for _, c := range checklists {
		subtasks, err := checklistSubtasks(db, c.ID)
		if err != nil {
			return nil, internal(err)
		}
		view := ChecklistView{Checklist: c, Subtasks: make([]SubtaskView, 0, len(subtasks)), DeleteAllow: len(subtasks) == 0}
		done := 0
		for _, st := range subtasks {
			if st.Status == Models.StatusCompleted {
				done++
			}
			progress, err := TaskProgress(db, st.ID)
			if err != nil {
				return nil, internal(err)
			}
			view.Subtasks = append(view.Subtasks, SubtaskView{
				TaskID:     st.ID,
				TaskName:   st.Name,
				Status:     st.Status,
				AssignedTo: st.AssignedTo,
				Progress:   progress,
			})
		}
		view.Progress = Progress(done, len(subtasks))
		views = append(views, view)
	}
	return views, nil
}
