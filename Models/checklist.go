package Models

import "time"

type Checklist struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"checklist_name" gorm:"not null"`
	IsCompleted bool      `json:"is_completed" gorm:"not null;default:false"`
	CreatedBy   uint      `json:"created_by" gorm:"index"`
	IsDelete    bool      `json:"is_delete" gorm:"not null;default:false;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskChecklistLink attaches a checklist to its owning task. Rows with SubTaskID set
// nest that task under the checklist.
type TaskChecklistLink struct {
	ID           uint  `json:"id" gorm:"primaryKey"`
	ParentTaskID *uint `json:"parent_task_id" gorm:"index"`
	ChecklistID  *uint `json:"checklist_id" gorm:"index"`
	SubTaskID    *uint `json:"sub_task_id" gorm:"index"`
}
