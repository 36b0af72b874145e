package Models

import "time"

// TaskUpdateLog is an append-only record of one field change on a task
type TaskUpdateLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TaskID    uint      `json:"task_id" gorm:"not null;index"`
	FieldName string    `json:"field_name" gorm:"size:64;not null"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	UpdatedBy uint      `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// ChecklistUpdateLog is an append-only record of one field change on a checklist
type ChecklistUpdateLog struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ChecklistID uint      `json:"checklist_id" gorm:"not null;index"`
	FieldName   string    `json:"field_name" gorm:"size:64;not null"`
	OldValue    string    `json:"old_value"`
	NewValue    string    `json:"new_value"`
	UpdatedBy   uint      `json:"updated_by"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}
