package TimeTracking

import (
	"errors"
	"time"

	"TaskManager/Models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSessionOpen is returned by Start when the task already has an open session
	ErrSessionOpen = errors.New("time tracking already in progress for this task")
	// ErrNoActiveSession marks a transition refused because no session is open
	ErrNoActiveSession = errors.New("no active time tracking found for this task")
)

// Gate tracks work sessions. At most one session per task is open at a time.
type Gate struct {
	Now func() time.Time
}

func NewGate() *Gate {
	return &Gate{Now: time.Now}
}

// Start opens a new session for userID on the task. The task row is locked
// first so concurrent starts on MySQL serialize on it.
func (g *Gate) Start(tx *gorm.DB, taskID, userID uint) (*Models.TaskTimeLog, error) {
	if err := lockTask(tx, taskID); err != nil {
		return nil, err
	}
	open, err := g.HasOpenSession(tx, taskID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrSessionOpen
	}

	entry := Models.TaskTimeLog{
		TaskID:    taskID,
		UserID:    userID,
		StartTime: g.now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// lockTask takes a row lock on the task until the transaction ends. SQLite
// drops the FOR clause; its writer lock already serializes transactions.
func lockTask(tx *gorm.DB, taskID uint) error {
	var ids []uint
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&Models.Task{}).
		Where("id = ?", taskID).
		Pluck("id", &ids).Error
}

// HasOpenSession reports whether any session on the task is open
func (g *Gate) HasOpenSession(tx *gorm.DB, taskID uint) (bool, error) {
	var count int64
	err := tx.Model(&Models.TaskTimeLog{}).
		Where("task_id = ? AND end_time IS NULL", taskID).
		Count(&count).Error
	return count > 0, err
}

// HasAnySession reports whether the task was ever tracked
func (g *Gate) HasAnySession(tx *gorm.DB, taskID uint) (bool, error) {
	var count int64
	err := tx.Model(&Models.TaskTimeLog{}).Where("task_id = ?", taskID).Count(&count).Error
	return count > 0, err
}

// CloseLatest ends the most recent session if it is still open.
// It reports whether a session was closed.
func (g *Gate) CloseLatest(tx *gorm.DB, taskID uint) (bool, error) {
	latest, err := g.latest(tx.Where("task_id = ?", taskID))
	if err != nil || latest == nil || !latest.IsOpen() {
		return false, err
	}
	now := g.now()
	if err := tx.Model(latest).Update("end_time", now).Error; err != nil {
		return false, err
	}
	return true, nil
}

// ReopenLatest clears the end time of the most recent session.
// It reports whether a session was reopened.
func (g *Gate) ReopenLatest(tx *gorm.DB, taskID uint) (bool, error) {
	latest, err := g.latest(tx.Where("task_id = ?", taskID))
	if err != nil || latest == nil || latest.IsOpen() {
		return false, err
	}
	if err := tx.Model(latest).Update("end_time", nil).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Latest returns the user's most recent session on the task, or nil
func (g *Gate) Latest(tx *gorm.DB, taskID, userID uint) (*Models.TaskTimeLog, error) {
	return g.latest(tx.Where("task_id = ? AND user_id = ?", taskID, userID))
}

func (g *Gate) latest(q *gorm.DB) (*Models.TaskTimeLog, error) {
	var entry Models.TaskTimeLog
	err := q.Order("start_time DESC").Order("id DESC").Limit(1).Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Session describes the latest session of a user on a task
type Session struct {
	IsOngoing *bool      `json:"is_ongoing"`
	StartTime *time.Time `json:"ongoing_start_time"`
	EndTime   *time.Time `json:"ongoing_end_time"`
}

// Describe renders a session for API responses; a nil log yields all-null fields
func Describe(entry *Models.TaskTimeLog) Session {
	if entry == nil {
		return Session{}
	}
	ongoing := entry.IsOpen()
	start := entry.StartTime
	return Session{IsOngoing: &ongoing, StartTime: &start, EndTime: entry.EndTime}
}
