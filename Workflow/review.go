package Workflow

import (
	"context"

	"TaskManager/Models"
	"TaskManager/TimeTracking"
)

// TaskState reports the status a task was left in by a cascade
type TaskState struct {
	TaskID uint              `json:"task_id"`
	Status Models.TaskStatus `json:"status"`
}

// propagateCompletionUpwards walks from a finalized review task down the chain it
// reviews, completing each task, and lets the final Normal task complete the
// checklists that hold it.
func (p *propagation) propagateCompletionUpwards(review *Models.Task) ([]TaskState, error) {
	var updated []TaskState
	visited := map[uint]bool{review.ID: true}

	current := review
	for current.IsReview() && current.ParentTaskID != nil {
		if visited[*current.ParentTaskID] {
			break
		}
		parent, err := p.loadTask(*current.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			p.log.Warn("review task has no live parent", "task_id", current.ID)
			break
		}
		visited[parent.ID] = true

		if err := p.setStatus(parent, Models.StatusCompleted); err != nil {
			return nil, err
		}
		if err := p.closeSession(parent.ID); err != nil {
			return nil, err
		}
		updated = append(updated, TaskState{TaskID: parent.ID, Status: parent.Status})
		current = parent
	}

	if current == review {
		return nil, nil
	}

	w := newWave()
	w.evaluated[current.ID] = true
	containing, err := containingChecklists(p.tx, current.ID)
	if err != nil {
		return nil, err
	}
	for _, checklistID := range containing {
		if err := p.recomputeChecklist(checklistID, w); err != nil {
			return nil, err
		}
	}

	final, err := p.loadTask(current.ID)
	if err != nil {
		return nil, err
	}
	if final != nil {
		updated = append(updated, TaskState{TaskID: final.ID, Status: final.Status})
	}
	return dedupe(updated, review.ID), nil
}

// reverseCompletionFromReview undoes a finalization: every finished review in the
// chain goes back to its previous status, and the Normal task at the end is
// reopened together with everything its completion had completed.
func (p *propagation) reverseCompletionFromReview(review *Models.Task) ([]TaskState, error) {
	if !review.IsReviewed {
		return nil, nil
	}

	var updated []TaskState
	visited := map[uint]bool{}

	current := review
	for current != nil && current.IsReview() {
		if visited[current.ID] {
			return dedupe(updated, review.ID), nil
		}
		visited[current.ID] = true

		if isFinished(current.Status) {
			if err := p.reopenSession(current.ID); err != nil {
				return nil, err
			}
			if err := p.revertStatus(current); err != nil {
				return nil, err
			}
		}
		if err := p.setReviewed(current, false); err != nil {
			return nil, err
		}
		updated = append(updated, TaskState{TaskID: current.ID, Status: current.Status})

		if current.ParentTaskID == nil {
			return dedupe(updated, review.ID), nil
		}
		next, err := p.loadTask(*current.ParentTaskID)
		if err != nil {
			return nil, err
		}
		current = next
	}

	if current != nil && current.Status == Models.StatusCompleted {
		if err := p.reopenCompletedTask(current); err != nil {
			return nil, err
		}
		updated = append(updated, TaskState{TaskID: current.ID, Status: current.Status})

		containing, err := containingChecklists(p.tx, current.ID)
		if err != nil {
			return nil, err
		}
		incomplete := map[uint]bool{}
		for _, checklistID := range containing {
			if err := p.propagateIncompleteUpwards(checklistID, incomplete); err != nil {
				return nil, err
			}
		}
	}
	return dedupe(updated, review.ID), nil
}

// reopenCompletedTask clears the user-checked checklists of a task whose review was
// withdrawn and derives its status again
func (p *propagation) reopenCompletedTask(task *Models.Task) error {
	checklists, err := taskChecklists(p.tx, task.ID)
	if err != nil {
		return err
	}
	for i := range checklists {
		derived, err := hasLiveSubtasks(p.tx, checklists[i].ID)
		if err != nil {
			return err
		}
		if derived {
			continue
		}
		if err := p.setCompleted(&checklists[i], false); err != nil {
			return err
		}
	}
	return p.reopenTask(task)
}

// dedupe keeps the first state reported per task and drops the task that started the cascade
func dedupe(states []TaskState, exclude uint) []TaskState {
	seen := map[uint]bool{exclude: true}
	out := make([]TaskState, 0, len(states))
	for _, s := range states {
		if seen[s.TaskID] {
			continue
		}
		seen[s.TaskID] = true
		out = append(out, s)
	}
	return out
}

// requireOpenSession refuses the transition unless someone is working on the task
func (p *propagation) requireOpenSession(taskID uint) error {
	open, err := p.gate.HasOpenSession(p.tx, taskID)
	if err != nil {
		return err
	}
	if !open {
		return conflict(TimeTracking.ErrNoActiveSession, NoActiveTimeTracking)
	}
	return nil
}

// requireAnySession refuses the transition unless the task was ever tracked
func (p *propagation) requireAnySession(taskID uint) error {
	tracked, err := p.gate.HasAnySession(p.tx, taskID)
	if err != nil {
		return err
	}
	if !tracked {
		return conflict(TimeTracking.ErrNoActiveSession, NoActiveTimeTracking)
	}
	return nil
}

// SendForReviewInput asks for one more review round
type SendForReviewInput struct {
	TaskID     uint
	AssignedTo uint
}

// SendForReview chains a new review task above a review task
func (s *Service) SendForReview(ctx context.Context, actor uint, in SendForReviewInput) (*Models.Task, error) {
	var created *Models.Task
	err := s.inTx(ctx, "send_for_review", actor, func(p *propagation) error {
		task, err := p.loadTask(in.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return notFound("Task not found")
		}
		if !task.CanModify(actor) {
			return forbidden("You don't have permission to update this task")
		}
		if err := p.requireOpenSession(task.ID); err != nil {
			return err
		}
		if !task.IsReview() {
			return invalidState("Only review tasks can send for further review")
		}
		next, err := reviewChild(p.tx, task.ID)
		if err != nil {
			return err
		}
		if next != nil {
			return invalidState("Already sent for further review")
		}

		if !task.IsReviewRequired {
			task.IsReviewRequired = true
			if err := p.tx.Model(task).Update("is_review_required", true).Error; err != nil {
				return err
			}
			p.changes.TaskChange(p.tx, task.ID, "is_review_required", false, true, actor)
		}
		if err := p.setStatus(task, Models.StatusInReview); err != nil {
			return err
		}
		if err := p.closeSession(task.ID); err != nil {
			return err
		}

		created = &Models.Task{
			Name:           task.Name,
			Status:         Models.StatusToDo,
			PreviousStatus: Models.StatusToDo,
			TaskType:       Models.TaskTypeReview,
			ParentTaskID:   &task.ID,
			AssignedTo:     in.AssignedTo,
			CreatedBy:      actor,
			DueDate:        task.DueDate,
		}
		if err := p.tx.Create(created).Error; err != nil {
			return err
		}
		p.changes.TaskChange(p.tx, created.ID, "status", nil, created.Status, actor)
		p.emit(Event{Kind: EventReviewRequested, TaskID: created.ID, TaskName: created.Name, UserID: created.AssignedTo})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
