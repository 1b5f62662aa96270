package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"

	DefaultTaskCategory = "general"
)

type Task struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" bson:"_id"`
	Title       string    `json:"title" gorm:"not null" bson:"title" binding:"required"`
	Description string    `json:"description" bson:"description"`
	Category    string    `json:"category" gorm:"index" bson:"category"`
	Priority    string    `json:"priority" gorm:"index" bson:"priority" binding:"oneof=low medium high"`
	Status      string    `json:"status" gorm:"index" bson:"status" binding:"oneof=pending in-progress completed"`
	DueDate     Date      `json:"dueDate" bson:"due_date"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index;autoCreateTime:false" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime:false" bson:"updated_at"`
}

// TaskInput is the create payload. Pointer fields distinguish an omitted
// key, which takes the default, from an explicit value.
type TaskInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	DueDate     Date    `json:"dueDate"`
}

// NewTask applies defaults to in, validates the result and stamps it with a
// fresh id and both timestamps set to now.
func NewTask(in TaskInput, now time.Time) (*Task, error) {
	task := &Task{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       stringOr(in.Title, ""),
		Description: stringOr(in.Description, ""),
		Category:    stringOr(in.Category, DefaultTaskCategory),
		Priority:    stringOr(in.Priority, PriorityMedium),
		Status:      stringOr(in.Status, StatusPending),
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate("Task", task); err != nil {
		return nil, err
	}
	return task, nil
}
