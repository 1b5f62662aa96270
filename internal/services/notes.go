package services

import (
	"context"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

type NoteFilter struct {
	// TaskID must parse as an identifier when set.
	TaskID string
	Search string
}

type NoteService interface {
	ListNotes(ctx context.Context, filter NoteFilter) ([]models.Note, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	CreateNote(ctx context.Context, input models.NoteInput) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, changes []byte) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

type NoteServiceImpl struct {
	notes collection[models.Note]
}

func NewNoteService(notes store.Collection[models.Note], opts Options) *NoteServiceImpl {
	return &NoteServiceImpl{notes: newCollection("Note", store.NotesName, notes, opts)}
}

// ListNotes returns pinned notes first, newest first within each group.
func (s *NoteServiceImpl) ListNotes(ctx context.Context, f NoteFilter) ([]models.Note, error) {
	var filter store.Filter
	if f.TaskID != "" {
		taskID, err := store.ParseID(f.TaskID)
		if err != nil {
			return nil, err
		}
		filter = append(filter, store.Eq("task_id", taskID))
	}
	if f.Search != "" {
		filter = append(filter, store.ContainsFold("content", f.Search))
	}

	return s.notes.list(ctx, store.Query{
		Filter: filter,
		Sort:   []store.SortField{store.Desc("pinned"), store.Desc("created_at")},
	})
}

func (s *NoteServiceImpl) GetNote(ctx context.Context, id string) (*models.Note, error) {
	_, note, err := s.notes.get(ctx, id)
	return note, err
}

func (s *NoteServiceImpl) CreateNote(ctx context.Context, input models.NoteInput) (*models.Note, error) {
	note, err := models.NewNote(input, s.notes.now())
	if err != nil {
		return nil, err
	}
	if err := s.notes.insert(ctx, note.ID, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteServiceImpl) UpdateNote(ctx context.Context, id string, changes []byte) (*models.Note, error) {
	return s.notes.merge(ctx, id, changes, func(merged, stored *models.Note) {
		merged.ID = stored.ID
		merged.CreatedAt = stored.CreatedAt
		merged.UpdatedAt = s.notes.touch(stored.UpdatedAt)
	})
}

func (s *NoteServiceImpl) DeleteNote(ctx context.Context, id string) error {
	return s.notes.remove(ctx, id)
}
