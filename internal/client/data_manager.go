package client

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/events"
	"taskboard/internal/models"
	"taskboard/internal/store"
)

// DataManager keeps local copies of tasks, categories and notes in sync with
// the server and notifies observers of every change it makes. Each caller
// constructs its own; there is no shared instance.
type DataManager struct {
	api *APIService
	bus *events.Bus

	mu         sync.RWMutex
	tasks      []models.Task
	categories []models.Category
	notes      []models.Note
}

func NewDataManager(api *APIService, bus *events.Bus) *DataManager {
	if bus == nil {
		bus = events.NewBus()
	}
	return &DataManager{api: api, bus: bus}
}

// Subscribe registers o for Created, Updated, Deleted and Failed events.
func (m *DataManager) Subscribe(o events.Observer) (unsubscribe func()) {
	return m.bus.Subscribe(o)
}

// Load fetches all three collections concurrently and replaces the local
// copies only if every fetch succeeds.
func (m *DataManager) Load(ctx context.Context) error {
	var (
		tasks      []models.Task
		categories []models.Category
		notes      []models.Note
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tasks, err = m.api.ListTasks(ctx, TaskQuery{})
		return err
	})
	g.Go(func() (err error) {
		categories, err = m.api.ListCategories(ctx)
		return err
	})
	g.Go(func() (err error) {
		notes, err = m.api.ListNotes(ctx, NoteQuery{})
		return err
	})
	if err := g.Wait(); err != nil {
		m.bus.Publish(events.Failed{Op: "load", Err: err})
		return err
	}

	m.mu.Lock()
	m.tasks, m.categories, m.notes = tasks, categories, notes
	m.mu.Unlock()
	return nil
}

func (m *DataManager) Tasks() []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Task(nil), m.tasks...)
}

func (m *DataManager) Categories() []models.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Category(nil), m.categories...)
}

func (m *DataManager) Notes() []models.Note {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Note(nil), m.notes...)
}

func (m *DataManager) fail(collection, op string, err error) error {
	m.bus.Publish(events.Failed{Collection: collection, Op: op, Err: err})
	return err
}

func (m *DataManager) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	task, err := m.api.CreateTask(ctx, in)
	if err != nil {
		return nil, m.fail(store.TasksName, "create", err)
	}
	m.mu.Lock()
	m.tasks = append([]models.Task{*task}, m.tasks...)
	m.mu.Unlock()
	m.bus.Publish(events.Created{Collection: store.TasksName, ID: task.ID, Document: *task})
	return task, nil
}

func (m *DataManager) UpdateTask(ctx context.Context, id uuid.UUID, changes interface{}) (*models.Task, error) {
	task, err := m.api.UpdateTask(ctx, id.String(), changes)
	if err != nil {
		return nil, m.fail(store.TasksName, "update", err)
	}
	m.mu.Lock()
	m.tasks = replace(m.tasks, *task, func(t models.Task) bool { return t.ID == id })
	m.mu.Unlock()
	m.bus.Publish(events.Updated{Collection: store.TasksName, ID: id, Document: *task})
	return task, nil
}

func (m *DataManager) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := m.api.DeleteTask(ctx, id.String()); err != nil {
		return m.fail(store.TasksName, "delete", err)
	}
	m.mu.Lock()
	m.tasks = without(m.tasks, func(t models.Task) bool { return t.ID == id })
	m.mu.Unlock()
	m.bus.Publish(events.Deleted{Collection: store.TasksName, ID: id})
	return nil
}

func (m *DataManager) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	category, err := m.api.CreateCategory(ctx, in)
	if err != nil {
		return nil, m.fail(store.CategoriesName, "create", err)
	}
	m.mu.Lock()
	m.categories = append(m.categories, *category)
	m.mu.Unlock()
	m.bus.Publish(events.Created{Collection: store.CategoriesName, ID: category.ID, Document: *category})
	return category, nil
}

func (m *DataManager) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := m.api.DeleteCategory(ctx, id.String()); err != nil {
		return m.fail(store.CategoriesName, "delete", err)
	}
	m.mu.Lock()
	m.categories = without(m.categories, func(c models.Category) bool { return c.ID == id })
	m.mu.Unlock()
	m.bus.Publish(events.Deleted{Collection: store.CategoriesName, ID: id})
	return nil
}

func (m *DataManager) CreateNote(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	note, err := m.api.CreateNote(ctx, in)
	if err != nil {
		return nil, m.fail(store.NotesName, "create", err)
	}
	m.mu.Lock()
	m.notes = append([]models.Note{*note}, m.notes...)
	m.mu.Unlock()
	m.bus.Publish(events.Created{Collection: store.NotesName, ID: note.ID, Document: *note})
	return note, nil
}

func (m *DataManager) UpdateNote(ctx context.Context, id uuid.UUID, changes interface{}) (*models.Note, error) {
	note, err := m.api.UpdateNote(ctx, id.String(), changes)
	if err != nil {
		return nil, m.fail(store.NotesName, "update", err)
	}
	m.mu.Lock()
	m.notes = replace(m.notes, *note, func(n models.Note) bool { return n.ID == id })
	m.mu.Unlock()
	m.bus.Publish(events.Updated{Collection: store.NotesName, ID: id, Document: *note})
	return note, nil
}

func (m *DataManager) DeleteNote(ctx context.Context, id uuid.UUID) error {
	if err := m.api.DeleteNote(ctx, id.String()); err != nil {
		return m.fail(store.NotesName, "delete", err)
	}
	m.mu.Lock()
	m.notes = without(m.notes, func(n models.Note) bool { return n.ID == id })
	m.mu.Unlock()
	m.bus.Publish(events.Deleted{Collection: store.NotesName, ID: id})
	return nil
}

// FilterTasks applies the server's task filters to the local copy. Search
// is a case-folded substring match on the title.
func (m *DataManager) FilterTasks(q TaskQuery) []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if q.Category != "" && t.Category != q.Category {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		if !store.FoldContains(t.Title, q.Search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterNotes matches TaskID exactly and Search against the content.
func (m *DataManager) FilterNotes(q NoteQuery) []models.Note {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Note, 0, len(m.notes))
	for _, n := range m.notes {
		if q.TaskID != "" && (n.TaskID == nil || n.TaskID.String() != q.TaskID) {
			continue
		}
		if !store.FoldContains(n.Content, q.Search) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func replace[T any](items []T, item T, match func(T) bool) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if match(out[i]) {
			out[i] = item
			return out
		}
	}
	return append(out, item)
}

func without[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !match(it) {
			out = append(out, it)
		}
	}
	return out
}
