package Models

import (
	"time"

	"gorm.io/datatypes"
)

// TaskStatus is stored and logged by name
type TaskStatus string

const (
	StatusNew        TaskStatus = "New"
	StatusToDo       TaskStatus = "To_Do"
	StatusInProgress TaskStatus = "In_Progress"
	StatusInReview   TaskStatus = "In_Review"
	StatusInReEdit   TaskStatus = "In_ReEdit"
	StatusCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) String() string { return string(s) }

// TaskType distinguishes regular work from review gates
type TaskType string

const (
	TaskTypeNormal TaskType = "Normal"
	TaskTypeReview TaskType = "Review"
)

func (t TaskType) String() string { return string(t) }

// Task is a unit of work. Review tasks point at the task they review through ParentTaskID.
type Task struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	Name             string          `json:"task_name" gorm:"size:60;not null"`
	Description      string          `json:"description"`
	Status           TaskStatus      `json:"status" gorm:"size:20;not null;index"`
	PreviousStatus   TaskStatus      `json:"previous_status" gorm:"size:20"`
	TaskType         TaskType        `json:"task_type" gorm:"size:10;not null;default:Normal"`
	ParentTaskID     *uint           `json:"parent_task_id" gorm:"index"`
	AssignedTo       uint            `json:"assigned_to" gorm:"index"`
	CreatedBy        uint            `json:"created_by" gorm:"index"`
	DueDate          *datatypes.Date `json:"due_date"`
	IsReviewRequired bool            `json:"is_review_required"`
	IsReviewed       bool            `json:"is_reviewed"`
	Output           string          `json:"output"`
	IsDelete         bool            `json:"is_delete" gorm:"not null;default:false;index"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsReview reports whether the task is a review gate
func (t *Task) IsReview() bool {
	return t.TaskType == TaskTypeReview
}

// CanModify reports whether the user is the task's creator or assignee
func (t *Task) CanModify(userID uint) bool {
	return t.CreatedBy == userID || t.AssignedTo == userID
}
