package Workflow

import (
	"TaskManager/Models"

	"gorm.io/gorm"
)

// Reads over the task/checklist graph. Tombstoned rows are invisible to all of them.

func (p *propagation) loadTask(id uint) (*Models.Task, error) {
	return findTask(p.tx, id)
}

func findTask(db *gorm.DB, id uint) (*Models.Task, error) {
	var task Models.Task
	err := db.Where("id = ? AND is_delete = ?", id, false).Limit(1).Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == 0 {
		return nil, nil
	}
	return &task, nil
}

func findChecklist(db *gorm.DB, id uint) (*Models.Checklist, error) {
	var checklist Models.Checklist
	err := db.Where("id = ? AND is_delete = ?", id, false).Limit(1).Find(&checklist).Error
	if err != nil {
		return nil, err
	}
	if checklist.ID == 0 {
		return nil, nil
	}
	return &checklist, nil
}

// taskChecklists returns the live checklists owned by the task
func taskChecklists(db *gorm.DB, taskID uint) ([]Models.Checklist, error) {
	var checklists []Models.Checklist
	err := db.Model(&Models.Checklist{}).
		Joins("JOIN task_checklist_links ON task_checklist_links.checklist_id = checklists.id").
		Where("task_checklist_links.parent_task_id = ? AND checklists.is_delete = ?", taskID, false).
		Order("checklists.id").
		Find(&checklists).Error
	return checklists, err
}

// checklistSubtasks returns the live tasks nested under the checklist
func checklistSubtasks(db *gorm.DB, checklistID uint) ([]Models.Task, error) {
	var tasks []Models.Task
	err := db.Model(&Models.Task{}).
		Joins("JOIN task_checklist_links ON task_checklist_links.sub_task_id = tasks.id").
		Where("task_checklist_links.checklist_id = ? AND tasks.is_delete = ?", checklistID, false).
		Order("tasks.id").
		Find(&tasks).Error
	return tasks, err
}

// checklistOwners returns the ids of tasks that own the checklist
func checklistOwners(db *gorm.DB, checklistID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&Models.TaskChecklistLink{}).
		Where("checklist_id = ? AND parent_task_id IS NOT NULL", checklistID).
		Order("id").
		Pluck("parent_task_id", &ids).Error
	return ids, err
}

// checklistOwner returns the live task owning the checklist, or nil
func checklistOwner(db *gorm.DB, checklistID uint) (*Models.Task, error) {
	owners, err := checklistOwners(db, checklistID)
	if err != nil || len(owners) == 0 {
		return nil, err
	}
	return findTask(db, owners[0])
}

// containingChecklists returns the ids of live checklists that hold the task as a subtask
func containingChecklists(db *gorm.DB, taskID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&Models.TaskChecklistLink{}).
		Joins("JOIN checklists ON checklists.id = task_checklist_links.checklist_id").
		Where("task_checklist_links.sub_task_id = ? AND checklists.is_delete = ?", taskID, false).
		Order("task_checklist_links.id").
		Pluck("task_checklist_links.checklist_id", &ids).Error
	return ids, err
}

// reviewChild returns the live review task gating the given task, or nil
func reviewChild(db *gorm.DB, taskID uint) (*Models.Task, error) {
	var review Models.Task
	err := db.Where("parent_task_id = ? AND task_type = ? AND is_delete = ?", taskID, Models.TaskTypeReview, false).
		Order("id").Limit(1).Find(&review).Error
	if err != nil {
		return nil, err
	}
	if review.ID == 0 {
		return nil, nil
	}
	return &review, nil
}

// hasLiveSubtasks reports whether the checklist has any nested task
func hasLiveSubtasks(db *gorm.DB, checklistID uint) (bool, error) {
	var count int64
	err := db.Model(&Models.TaskChecklistLink{}).
		Joins("JOIN tasks ON tasks.id = task_checklist_links.sub_task_id").
		Where("task_checklist_links.checklist_id = ? AND tasks.is_delete = ?", checklistID, false).
		Count(&count).Error
	return count > 0, err
}
