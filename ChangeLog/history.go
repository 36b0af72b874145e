package ChangeLog

import (
	"sort"
	"time"

	"TaskManager/Models"

	"gorm.io/gorm"
)

const (
	EntityTask      = "task"
	EntityChecklist = "checklist"
)

// Entry is one change-log row of either entity kind
type Entry struct {
	Entity    string    `json:"entity"`
	EntityID  uint      `json:"entity_id"`
	FieldName string    `json:"field_name"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	UpdatedBy uint      `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`

	id uint
}

// TaskHistory returns the task's change rows merged with those of every
// checklist attached to it, oldest first
func TaskHistory(db *gorm.DB, taskID uint) ([]Entry, error) {
	var taskLogs []Models.TaskUpdateLog
	if err := db.Where("task_id = ?", taskID).Find(&taskLogs).Error; err != nil {
		return nil, err
	}

	checklistIDs := db.Model(&Models.TaskChecklistLink{}).
		Select("checklist_id").
		Where("parent_task_id = ? AND checklist_id IS NOT NULL", taskID)

	var checklistLogs []Models.ChecklistUpdateLog
	if err := db.Where("checklist_id IN (?)", checklistIDs).Find(&checklistLogs).Error; err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(taskLogs)+len(checklistLogs))
	for _, l := range taskLogs {
		entries = append(entries, Entry{
			Entity: EntityTask, EntityID: l.TaskID, FieldName: l.FieldName,
			OldValue: l.OldValue, NewValue: l.NewValue, UpdatedBy: l.UpdatedBy, UpdatedAt: l.UpdatedAt, id: l.ID,
		})
	}
	for _, l := range checklistLogs {
		entries = append(entries, Entry{
			Entity: EntityChecklist, EntityID: l.ChecklistID, FieldName: l.FieldName,
			OldValue: l.OldValue, NewValue: l.NewValue, UpdatedBy: l.UpdatedBy, UpdatedAt: l.UpdatedAt, id: l.ID,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		if entries[i].Entity != entries[j].Entity {
			return entries[i].Entity == EntityTask
		}
		return entries[i].id < entries[j].id
	})
	return entries, nil
}
