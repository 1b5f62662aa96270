package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const DefaultNoteColor = "#ffffa5"

// Note.TaskID is an advisory reference; nothing checks that the task exists
// and deleting a task leaves its notes in place.
type Note struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" bson:"_id"`
	TaskID    *uuid.UUID `json:"taskId" gorm:"type:uuid;index" bson:"task_id"`
	Title     string     `json:"title" bson:"title"`
	Content   string     `json:"content" gorm:"not null" bson:"content" binding:"required"`
	Color     string     `json:"color" bson:"color"`
	Pinned    bool       `json:"pinned" gorm:"index" bson:"pinned"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index;autoCreateTime:false" bson:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"autoUpdateTime:false" bson:"updated_at"`
}

type NoteInput struct {
	TaskID  *uuid.UUID `json:"taskId"`
	Title   *string    `json:"title"`
	Content *string    `json:"content"`
	Color   *string    `json:"color"`
	Pinned  *bool      `json:"pinned"`
}

func NewNote(in NoteInput, now time.Time) (*Note, error) {
	note := &Note{
		ID:        uuid.Must(uuid.NewV4()),
		TaskID:    in.TaskID,
		Title:     stringOr(in.Title, ""),
		Content:   stringOr(in.Content, ""),
		Color:     stringOr(in.Color, DefaultNoteColor),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Pinned != nil {
		note.Pinned = *in.Pinned
	}
	if err := validate("Note", note); err != nil {
		return nil, err
	}
	return note, nil
}
