package Models

import "time"

// TaskTimeLog is a work session on a task. A nil EndTime means the session is open.
type TaskTimeLog struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	TaskID    uint       `json:"task_id" gorm:"not null;index"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`
	IsPaused  bool       `json:"is_paused" gorm:"not null;default:false"`
}

// IsOpen reports whether the session has not been closed
func (l *TaskTimeLog) IsOpen() bool {
	return l.EndTime == nil
}
