package Workflow

import (
	"fmt"

	"TaskManager/Models"

	"gorm.io/gorm"
)

// Progress renders completed/total, or "0/0" when there is nothing to count
func Progress(completed, total int) string {
	if total == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", completed, total)
}

// TaskProgress counts the task's complete checklists
func TaskProgress(db *gorm.DB, taskID uint) (string, error) {
	checklists, err := taskChecklists(db, taskID)
	if err != nil {
		return "", err
	}
	return Progress(completedCount(checklists), len(checklists)), nil
}

// ChecklistProgress counts the checklist's completed subtasks
func ChecklistProgress(db *gorm.DB, checklistID uint) (string, error) {
	subtasks, err := checklistSubtasks(db, checklistID)
	if err != nil {
		return "", err
	}
	done := 0
	for _, st := range subtasks {
		if st.Status == Models.StatusCompleted {
			done++
		}
	}
	return Progress(done, len(subtasks)), nil
}
