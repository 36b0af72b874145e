package Workflow

import (
	"context"
	"errors"

	"TaskManager/Models"
	"TaskManager/TimeTracking"
)

// StartTimer opens a work session on a task for the caller
func (s *Service) StartTimer(ctx context.Context, actor uint, taskID uint) (*Models.TaskTimeLog, error) {
	var entry *Models.TaskTimeLog
	err := s.inTx(ctx, "start_timer", actor, func(p *propagation) error {
		task, err := p.loadTask(taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return notFound("Task not found")
		}
		if !task.CanModify(actor) {
			return forbidden("You don't have permission to track time on this task")
		}
		entry, err = p.gate.Start(p.tx, task.ID, actor)
		if errors.Is(err, TimeTracking.ErrSessionOpen) {
			return conflict(err, "Time tracking already in progress for this task")
		}
		if err != nil {
			return err
		}
		p.log.Info("time tracking started", "task_id", task.ID, "session_id", entry.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
