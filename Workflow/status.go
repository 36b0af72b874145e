package Workflow

import (
	"TaskManager/Models"
)

// setStatus moves the task to next, remembering where it came from.
// Writing the current status is a no-op.
func (p *propagation) setStatus(task *Models.Task, next Models.TaskStatus) error {
	if task.Status == next {
		return nil
	}
	old := task.Status
	task.PreviousStatus = old
	task.Status = next
	if err := p.saveStatus(task); err != nil {
		return err
	}
	p.changes.TaskChange(p.tx, task.ID, "status", old, next, p.actor)
	p.transitions = append(p.transitions, next)
	p.log.Debug("task status changed", "task_id", task.ID, "from", old, "to", next)

	if task.IsReview() && next == Models.StatusToDo {
		p.emit(Event{Kind: EventReviewReady, TaskID: task.ID, TaskName: task.Name, UserID: task.AssignedTo})
	}
	return nil
}

// revertStatus swaps status and previous status. A task without a previous status is left alone.
func (p *propagation) revertStatus(task *Models.Task) error {
	if task.PreviousStatus == "" || task.PreviousStatus == task.Status {
		return nil
	}
	old := task.Status
	task.Status, task.PreviousStatus = task.PreviousStatus, task.Status
	if err := p.saveStatus(task); err != nil {
		return err
	}
	p.changes.TaskChange(p.tx, task.ID, "status", old, task.Status, p.actor)
	p.transitions = append(p.transitions, task.Status)
	p.log.Debug("task status reverted", "task_id", task.ID, "from", old, "to", task.Status)
	return nil
}

func (p *propagation) saveStatus(task *Models.Task) error {
	return p.tx.Model(task).Updates(map[string]any{
		"status":          task.Status,
		"previous_status": task.PreviousStatus,
	}).Error
}

// setReviewed writes the is_reviewed flag of a review task
func (p *propagation) setReviewed(task *Models.Task, reviewed bool) error {
	if task.IsReviewed == reviewed {
		return nil
	}
	old := task.IsReviewed
	task.IsReviewed = reviewed
	if err := p.tx.Model(task).Update("is_reviewed", reviewed).Error; err != nil {
		return err
	}
	p.changes.TaskChange(p.tx, task.ID, "is_reviewed", old, reviewed, p.actor)
	return nil
}

// setCompleted writes a checklist's completion flag
func (p *propagation) setCompleted(checklist *Models.Checklist, completed bool) error {
	if checklist.IsCompleted == completed {
		return nil
	}
	old := checklist.IsCompleted
	checklist.IsCompleted = completed
	if err := p.tx.Model(checklist).Update("is_completed", completed).Error; err != nil {
		return err
	}
	p.changes.ChecklistChange(p.tx, checklist.ID, "is_completed", old, completed, p.actor)
	return nil
}

func (p *propagation) closeSession(taskID uint) error {
	_, err := p.gate.CloseLatest(p.tx, taskID)
	return err
}

func (p *propagation) reopenSession(taskID uint) error {
	_, err := p.gate.ReopenLatest(p.tx, taskID)
	return err
}

func isFinished(status Models.TaskStatus) bool {
	return status == Models.StatusCompleted || status == Models.StatusInReview
}
