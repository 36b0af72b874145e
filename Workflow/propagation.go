package Workflow

import (
	"TaskManager/Models"
)

// wave tracks one forward completion cascade. Tasks are re-evaluated once unless a
// checklist they own flips to complete; each checklist flips at most once.
type wave struct {
	evaluated map[uint]bool
	flipped   map[uint]bool
}

func newWave() *wave {
	return &wave{evaluated: map[uint]bool{}, flipped: map[uint]bool{}}
}

// updateParentTaskStatus derives the task's status from its checklists, then
// carries the change to every checklist holding the task as a subtask.
func (p *propagation) updateParentTaskStatus(taskID uint, w *wave) error {
	w.evaluated[taskID] = true

	task, err := p.loadTask(taskID)
	if err != nil || task == nil {
		return err
	}

	checklists, err := taskChecklists(p.tx, task.ID)
	if err != nil {
		return err
	}

	if len(checklists) > 0 {
		if allCompleted(checklists) {
			if err := p.finishTask(task); err != nil {
				return err
			}
		} else if task.Status != Models.StatusInProgress {
			if err := p.setStatus(task, Models.StatusInProgress); err != nil {
				return err
			}
		}
	}

	containing, err := containingChecklists(p.tx, task.ID)
	if err != nil {
		return err
	}
	for _, checklistID := range containing {
		if err := p.recomputeChecklist(checklistID, w); err != nil {
			return err
		}
	}
	return nil
}

// finishTask handles a task whose checklists are all complete
func (p *propagation) finishTask(task *Models.Task) error {
	var review *Models.Task
	if task.IsReviewRequired {
		var err error
		if review, err = reviewChild(p.tx, task.ID); err != nil {
			return err
		}
	}

	next := Models.StatusCompleted
	if task.IsReviewRequired && !(review != nil && review.IsReviewed && review.Status == Models.StatusCompleted) {
		next = Models.StatusInReview
	}
	if err := p.setStatus(task, next); err != nil {
		return err
	}
	if err := p.closeSession(task.ID); err != nil {
		return err
	}

	if next == Models.StatusInReview && review != nil {
		// unblock the reviewer
		return p.setStatus(review, Models.StatusToDo)
	}
	return nil
}

// recomputeChecklist derives a checklist's completion from its subtasks. Leaf
// checklists keep the value a user gave them.
func (p *propagation) recomputeChecklist(checklistID uint, w *wave) error {
	checklist, err := findChecklist(p.tx, checklistID)
	if err != nil || checklist == nil {
		return err
	}
	subtasks, err := checklistSubtasks(p.tx, checklist.ID)
	if err != nil || len(subtasks) == 0 {
		return err
	}

	derived := true
	for _, st := range subtasks {
		if st.Status != Models.StatusCompleted {
			derived = false
			break
		}
	}

	switch {
	case derived && !checklist.IsCompleted:
		if w.flipped[checklist.ID] {
			return nil
		}
		w.flipped[checklist.ID] = true
		if err := p.setCompleted(checklist, true); err != nil {
			return err
		}
		owners, err := checklistOwners(p.tx, checklist.ID)
		if err != nil {
			return err
		}
		for _, owner := range owners {
			if err := p.updateParentTaskStatus(owner, w); err != nil {
				return err
			}
		}
		return nil

	case !derived && checklist.IsCompleted:
		return p.propagateIncompleteUpwards(checklist.ID, map[uint]bool{})

	default:
		owners, err := checklistOwners(p.tx, checklist.ID)
		if err != nil {
			return err
		}
		for _, owner := range owners {
			if w.evaluated[owner] {
				continue
			}
			if err := p.updateParentTaskStatus(owner, w); err != nil {
				return err
			}
		}
		return nil
	}
}

// propagateIncompleteUpwards marks the checklist incomplete and reopens every
// finished task above it. visited guards against cyclic links.
func (p *propagation) propagateIncompleteUpwards(checklistID uint, visited map[uint]bool) error {
	if visited[checklistID] {
		return nil
	}
	visited[checklistID] = true

	checklist, err := findChecklist(p.tx, checklistID)
	if err != nil {
		return err
	}
	if checklist != nil {
		if err := p.setCompleted(checklist, false); err != nil {
			return err
		}
	}

	owner, err := checklistOwner(p.tx, checklistID)
	if err != nil || owner == nil {
		return err
	}

	if isFinished(owner.Status) {
		if err := p.reopenTask(owner); err != nil {
			return err
		}
		if owner.IsReviewRequired {
			if err := p.revertReviewChild(owner); err != nil {
				return err
			}
		}
	}

	containing, err := containingChecklists(p.tx, owner.ID)
	if err != nil {
		return err
	}
	for _, parentChecklist := range containing {
		if err := p.propagateIncompleteUpwards(parentChecklist, visited); err != nil {
			return err
		}
	}
	return nil
}

// reopenTask puts a finished task back to work: To_Do when none of its
// checklists is complete, In_Progress otherwise.
func (p *propagation) reopenTask(task *Models.Task) error {
	if err := p.reopenSession(task.ID); err != nil {
		return err
	}
	checklists, err := taskChecklists(p.tx, task.ID)
	if err != nil {
		return err
	}
	next := Models.StatusInProgress
	if completedCount(checklists) == 0 {
		next = Models.StatusToDo
	}
	return p.setStatus(task, next)
}

// revertReviewChild rolls the task's reviewer back to its previous state
func (p *propagation) revertReviewChild(task *Models.Task) error {
	review, err := reviewChild(p.tx, task.ID)
	if err != nil || review == nil || review.PreviousStatus == "" {
		return err
	}
	if err := p.revertStatus(review); err != nil {
		return err
	}
	if isFinished(review.Status) {
		return p.reopenSession(review.ID)
	}
	return p.setReviewed(review, false)
}

func allCompleted(checklists []Models.Checklist) bool {
	return completedCount(checklists) == len(checklists)
}

func completedCount(checklists []Models.Checklist) int {
	n := 0
	for _, c := range checklists {
		if c.IsCompleted {
			n++
		}
	}
	return n
}
