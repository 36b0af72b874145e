package Workflow

import (
	"context"

	"TaskManager/Models"

	"gorm.io/gorm"
)

// DeleteInput names exactly one task or checklist to tombstone
type DeleteInput struct {
	TaskID      *uint
	ChecklistID *uint
}

// DeleteResult lists what was tombstoned and where the parent task ended up
type DeleteResult struct {
	Tasks          []uint             `json:"tasks"`
	Checklists     []uint             `json:"checklists"`
	ParentTaskID   *uint              `json:"parent_task_id"`
	ParentProgress *string            `json:"parent_checklist_progress"`
	ParentStatus   *Models.TaskStatus `json:"parent_task_status"`
}

// Delete tombstones a task or checklist together with everything nested under it,
// then lets the surrounding graph settle
func (s *Service) Delete(ctx context.Context, actor uint, in DeleteInput) (*DeleteResult, error) {
	var result *DeleteResult
	err := s.inTx(ctx, "delete", actor, func(p *propagation) error {
		if (in.TaskID == nil) == (in.ChecklistID == nil) {
			return invalidState("Provide either task_id or checklist_id")
		}
		var parent *Models.Task
		var containing []uint
		var err error

		if in.TaskID != nil {
			task, err := p.loadTask(*in.TaskID)
			if err != nil {
				return err
			}
			if task == nil {
				return notFound("Task not found")
			}
			if task.CreatedBy != actor {
				return forbidden("Task not found or not owned by you")
			}
			if containing, err = containingChecklists(p.tx, task.ID); err != nil {
				return err
			}
		} else {
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
			if checklist.CreatedBy != actor && parent.CreatedBy != actor {
				return forbidden("You don't have permission to delete this checklist")
			}
		}

		tasks, checklists, err := relatedItems(p.tx, in.TaskID, in.ChecklistID)
		if err != nil {
			return err
		}
		if err := p.tombstone(tasks, checklists); err != nil {
			return err
		}

		if parent != nil {
			if err := p.updateParentTaskStatus(parent.ID, newWave()); err != nil {
				return err
			}
		} else {
			w := newWave()
			for _, checklistID := range containing {
				if err := p.recomputeChecklist(checklistID, w); err != nil {
					return err
				}
				// a checklist left without subtasks is a leaf now; its owner still re-derives
				owners, err := checklistOwners(p.tx, checklistID)
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
			}
			if len(containing) > 0 {
				if parent, err = checklistOwner(p.tx, containing[0]); err != nil {
					return err
				}
			}
		}

		result = &DeleteResult{Tasks: tasks, Checklists: checklists}
		if parent != nil {
			if parent, err = p.loadTask(parent.ID); err != nil {
				return err
			}
		}
		if parent != nil {
			progress, err := TaskProgress(p.tx, parent.ID)
			if err != nil {
				return err
			}
			result.ParentTaskID = &parent.ID
			result.ParentStatus = &parent.Status
			result.ParentProgress = &progress
		}
		return nil
	})
	return result, err
}

// relatedItems walks the link table breadth first from a task or checklist and
// returns every live task and checklist beneath it, review tasks gating any of
// those tasks included
func relatedItems(db *gorm.DB, taskID, checklistID *uint) ([]uint, []uint, error) {
	seenTasks := map[uint]bool{}
	seenChecklists := map[uint]bool{}
	var tasks, checklists, frontier []uint

	addTask := func(id uint) {
		if !seenTasks[id] {
			seenTasks[id] = true
			tasks = append(tasks, id)
			frontier = append(frontier, id)
		}
	}
	addChecklist := func(id uint) bool {
		if seenChecklists[id] {
			return false
		}
		seenChecklists[id] = true
		checklists = append(checklists, id)
		return true
	}

	if taskID != nil {
		addTask(*taskID)
	} else {
		addChecklist(*checklistID)
		subtasks, err := linkedSubtasks(db, []uint{*checklistID})
		if err != nil {
			return nil, nil, err
		}
		for _, id := range subtasks {
			addTask(id)
		}
	}

	for len(frontier) > 0 {
		current := frontier
		frontier = nil

		var links []Models.TaskChecklistLink
		if err := db.Where("parent_task_id IN ?", current).Find(&links).Error; err != nil {
			return nil, nil, err
		}
		var fresh []uint
		for _, l := range links {
			if l.ChecklistID != nil && addChecklist(*l.ChecklistID) {
				fresh = append(fresh, *l.ChecklistID)
			}
		}
		if len(fresh) > 0 {
			subtasks, err := linkedSubtasks(db, fresh)
			if err != nil {
				return nil, nil, err
			}
			for _, id := range subtasks {
				addTask(id)
			}
		}

		var reviews []uint
		err := db.Model(&Models.Task{}).
			Where("parent_task_id IN ? AND task_type = ? AND is_delete = ?", current, Models.TaskTypeReview, false).
			Pluck("id", &reviews).Error
		if err != nil {
			return nil, nil, err
		}
		for _, id := range reviews {
			addTask(id)
		}
	}

	tasks, err := onlyLive(db, &Models.Task{}, tasks)
	if err != nil {
		return nil, nil, err
	}
	checklists, err = onlyLive(db, &Models.Checklist{}, checklists)
	if err != nil {
		return nil, nil, err
	}
	return tasks, checklists, nil
}

func linkedSubtasks(db *gorm.DB, checklistIDs []uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&Models.TaskChecklistLink{}).
		Where("checklist_id IN ? AND sub_task_id IS NOT NULL", checklistIDs).
		Order("id").
		Pluck("sub_task_id", &ids).Error
	return ids, err
}

func onlyLive(db *gorm.DB, model any, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	live := []uint{}
	err := db.Model(model).Where("id IN ? AND is_delete = ?", ids, false).Order("id").Pluck("id", &live).Error
	return live, err
}

// tombstone flags the rows deleted in bulk and logs each one
func (p *propagation) tombstone(tasks, checklists []uint) error {
	if len(tasks) > 0 {
		if err := p.tx.Model(&Models.Task{}).Where("id IN ?", tasks).Update("is_delete", true).Error; err != nil {
			return err
		}
		for _, id := range tasks {
			p.changes.TaskChange(p.tx, id, "is_delete", false, true, p.actor)
		}
	}
	if len(checklists) > 0 {
		if err := p.tx.Model(&Models.Checklist{}).Where("id IN ?", checklists).Update("is_delete", true).Error; err != nil {
			return err
		}
		for _, id := range checklists {
			p.changes.ChecklistChange(p.tx, id, "is_delete", false, true, p.actor)
		}
	}
	p.log.Info("items tombstoned", "tasks", tasks, "checklists", checklists)
	return nil
}
