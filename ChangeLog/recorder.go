package ChangeLog

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"TaskManager/Models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends field-change rows for tasks and checklists.
// A failed write is logged and never returned to the caller.
type Recorder struct {
	Log *slog.Logger
	Now func() time.Time
}

// NewRecorder creates a Recorder using the wall clock
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{Log: logger, Now: time.Now}
}

// With returns a recorder sharing r's clock that logs write failures to logger
func (r *Recorder) With(logger *slog.Logger) *Recorder {
	return &Recorder{Log: logger, Now: r.Now}
}

// TaskChange records field going from old to new on a task.
// It reports whether a row was written.
func (r *Recorder) TaskChange(tx *gorm.DB, taskID uint, field string, old, new any, actor uint) bool {
	oldValue, newValue := Stringify(old), Stringify(new)
	if oldValue == newValue {
		return false
	}
	entry := Models.TaskUpdateLog{
		TaskID:    taskID,
		FieldName: field,
		OldValue:  oldValue,
		NewValue:  newValue,
		UpdatedBy: actor,
		UpdatedAt: r.now(),
	}
	return r.write(tx, &entry, "task_id", taskID, field)
}

// ChecklistChange records field going from old to new on a checklist
func (r *Recorder) ChecklistChange(tx *gorm.DB, checklistID uint, field string, old, new any, actor uint) bool {
	oldValue, newValue := Stringify(old), Stringify(new)
	if oldValue == newValue {
		return false
	}
	entry := Models.ChecklistUpdateLog{
		ChecklistID: checklistID,
		FieldName:   field,
		OldValue:    oldValue,
		NewValue:    newValue,
		UpdatedBy:   actor,
		UpdatedAt:   r.now(),
	}
	return r.write(tx, &entry, "checklist_id", checklistID, field)
}

// write runs the insert inside a savepoint so a failure leaves the caller's
// transaction usable
func (r *Recorder) write(tx *gorm.DB, entry any, idKey string, id uint, field string) bool {
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(entry).Error
	})
	if err != nil {
		r.logger().Error("failed to record field change", idKey, id, "field", field, "error", err)
		return false
	}
	return true
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Recorder) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// Stringify renders a field value the way it is stored in the change log.
// Enums render by name, nil as the empty string.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case *uint:
		if val == nil {
			return ""
		}
		return strconv.FormatUint(uint64(*val), 10)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case datatypes.Date:
		return time.Time(val).Format(time.DateOnly)
	case *datatypes.Date:
		if val == nil {
			return ""
		}
		return time.Time(*val).Format(time.DateOnly)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
