package Workflow

import (
	"context"

	"TaskManager/ChangeLog"
)

// TaskHistory returns the change log of a task and its checklists, oldest first.
// Tombstoned tasks keep their history readable.
func (s *Service) TaskHistory(ctx context.Context, taskID uint) ([]ChangeLog.Entry, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Table("tasks").Where("id = ?", taskID).Count(&count).Error; err != nil {
		return nil, internal(err)
	}
	if count == 0 {
		return nil, notFound("Task not found")
	}
	entries, err := ChangeLog.TaskHistory(db, taskID)
	if err != nil {
		return nil, internal(err)
	}
	return entries, nil
}
