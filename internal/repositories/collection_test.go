package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/database"
	"taskboard/internal/logging"
	"taskboard/internal/models"
	"taskboard/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:   database.DriverSQLite,
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: logger.Silent,
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, Bootstrap(pool.DB, &BootstrapConfig{MaxRetries: 1, Logger: logging.Discard()}))
	return pool.DB
}

func newTask(title, category, status string, created time.Time) *models.Task {
	return &models.Task{
		ID:        uuid.Must(uuid.NewV4()),
		Title:     title,
		Category:  category,
		Priority:  models.PriorityMedium,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCollection_InsertAndFindByID(t *testing.T) {
	ctx := context.Background()
	tasks := NewCollection[models.Task](newTestDB(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := newTask("Write docs", "work", models.StatusPending, base)
	due := base.Add(48 * time.Hour)
	task.DueDate = models.NewDate(due)
	require.NoError(t, tasks.Insert(ctx, task))

	got, err := tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "Write docs", got.Title)
	require.True(t, got.DueDate.Valid)
	assert.True(t, due.Equal(got.DueDate.Time))
	assert.True(t, base.Equal(got.CreatedAt))

	_, err = tasks.FindByID(ctx, uuid.Must(uuid.NewV4()))
	assert.True(t, errors.Is(err, store.ErrNotFound))

	undated := newTask("No deadline", "work", models.StatusPending, base)
	require.NoError(t, tasks.Insert(ctx, undated))
	got, err = tasks.FindByID(ctx, undated.ID)
	require.NoError(t, err)
	assert.False(t, got.DueDate.Valid)

	got.DueDate = models.NewDate(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, tasks.Update(ctx, undated.ID, got))
	got, err = tasks.FindByID(ctx, undated.ID)
	require.NoError(t, err)
	require.True(t, got.DueDate.Valid)
	assert.Equal(t, "2024-04-01", got.DueDate.Time.Format("2006-01-02"))
}

func TestCollection_FindFiltersAndSort(t *testing.T) {
	ctx := context.Background()
	tasks := NewCollection[models.Task](newTestDB(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, tasks.Insert(ctx, newTask("Weekly REPORT", "work", models.StatusPending, base)))
	require.NoError(t, tasks.Insert(ctx, newTask("groceries", "home", models.StatusPending, base.Add(time.Minute))))
	require.NoError(t, tasks.Insert(ctx, newTask("report bug", "work", models.StatusCompleted, base.Add(2*time.Minute))))
	require.NoError(t, tasks.Insert(ctx, newTask("100% done_ish", "work", models.StatusPending, base.Add(3*time.Minute))))
	require.NoError(t, tasks.Insert(ctx, newTask("Ärger mit Éclair", "home", models.StatusPending, base.Add(4*time.Minute))))

	tests := []struct {
		name   string
		filter store.Filter
		want   []string
	}{
		{
			name: "no filter",
			want: []string{"Ärger mit Éclair", "100% done_ish", "report bug", "groceries", "Weekly REPORT"},
		},
		{
			name:   "category",
			filter: store.Filter{store.Eq("category", "work")},
			want:   []string{"100% done_ish", "report bug", "Weekly REPORT"},
		},
		{
			name:   "conjunction",
			filter: store.Filter{store.Eq("category", "work"), store.Eq("status", models.StatusPending)},
			want:   []string{"100% done_ish", "Weekly REPORT"},
		},
		{
			name:   "case insensitive search",
			filter: store.Filter{store.ContainsFold("title", "RePoRt")},
			want:   []string{"report bug", "Weekly REPORT"},
		},
		{
			name:   "non-ascii lower case search",
			filter: store.Filter{store.ContainsFold("title", "ärger")},
			want:   []string{"Ärger mit Éclair"},
		},
		{
			name:   "non-ascii upper case search",
			filter: store.Filter{store.ContainsFold("title", "ÉCLAIR")},
			want:   []string{"Ärger mit Éclair"},
		},
		{
			name:   "search with exact condition",
			filter: store.Filter{store.Eq("category", "home"), store.ContainsFold("title", "éclair")},
			want:   []string{"Ärger mit Éclair"},
		},
		{
			name:   "wildcards are literal",
			filter: store.Filter{store.ContainsFold("title", "0% done_")},
			want:   []string{"100% done_ish"},
		},
		{
			name:   "underscore does not match any char",
			filter: store.Filter{store.ContainsFold("title", "_")},
			want:   []string{"100% done_ish"},
		},
		{
			name:   "no matches",
			filter: store.Filter{store.Eq("status", models.StatusInProgress)},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := tasks.Find(ctx, store.Query{Filter: tt.filter, Sort: []store.SortField{store.Desc("created_at")}})
			require.NoError(t, err)
			require.NotNil(t, docs)

			titles := make([]string, 0, len(docs))
			for _, d := range docs {
				titles = append(titles, d.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestCollection_MultiKeySort(t *testing.T) {
	ctx := context.Background()
	notes := NewCollection[models.Note](newTestDB(t))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, n := range []struct {
		content string
		pinned  bool
	}{{"A", false}, {"B", true}, {"C", false}} {
		created := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, notes.Insert(ctx, &models.Note{
			ID:        uuid.Must(uuid.NewV4()),
			Content:   n.content,
			Pinned:    n.pinned,
			CreatedAt: created,
			UpdatedAt: created,
		}))
	}

	docs, err := notes.Find(ctx, store.Query{Sort: []store.SortField{store.Desc("pinned"), store.Desc("created_at")}})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "B", docs[0].Content)
	assert.Equal(t, "C", docs[1].Content)
	assert.Equal(t, "A", docs[2].Content)
}

func TestCollection_FilterByUUID(t *testing.T) {
	ctx := context.Background()
	notes := NewCollection[models.Note](newTestDB(t))

	taskID := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()
	require.NoError(t, notes.Insert(ctx, &models.Note{ID: uuid.Must(uuid.NewV4()), TaskID: &taskID, Content: "linked", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, notes.Insert(ctx, &models.Note{ID: uuid.Must(uuid.NewV4()), Content: "loose", CreatedAt: now, UpdatedAt: now}))

	docs, err := notes.Find(ctx, store.Query{Filter: store.Filter{store.Eq("task_id", taskID)}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "linked", docs[0].Content)
	require.NotNil(t, docs[0].TaskID)
	assert.Equal(t, taskID, *docs[0].TaskID)
}

func TestCollection_UpdateWritesZeroValues(t *testing.T) {
	ctx := context.Background()
	notes := NewCollection[models.Note](newTestDB(t))

	now := time.Now().UTC()
	note := &models.Note{ID: uuid.Must(uuid.NewV4()), Title: "t", Content: "c", Pinned: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, notes.Insert(ctx, note))

	note.Pinned = false
	note.Title = ""
	require.NoError(t, notes.Update(ctx, note.ID, note))

	got, err := notes.FindByID(ctx, note.ID)
	require.NoError(t, err)
	assert.False(t, got.Pinned)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, "c", got.Content)

	missing := *note
	missing.ID = uuid.Must(uuid.NewV4())
	err = notes.Update(ctx, missing.ID, &missing)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	categories := NewCollection[models.Category](newTestDB(t))

	cat := &models.Category{ID: uuid.Must(uuid.NewV4()), Name: "Work", Color: "#fff", Icon: "folder"}
	require.NoError(t, categories.Insert(ctx, cat))

	deleted, err := categories.Delete(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work", deleted.Name)

	_, err = categories.FindByID(ctx, cat.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = categories.Delete(ctx, cat.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCollection_Count(t *testing.T) {
	ctx := context.Background()
	tasks := NewCollection[models.Task](newTestDB(t))

	n, err := tasks.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	now := time.Now().UTC()
	require.NoError(t, tasks.Insert(ctx, newTask("a", "work", models.StatusPending, now)))
	require.NoError(t, tasks.Insert(ctx, newTask("b", "work", models.StatusCompleted, now)))

	n, err = tasks.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = tasks.Count(ctx, store.Filter{store.Eq("status", models.StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, tasks.Insert(ctx, newTask("ÇA VA BIEN", "home", models.StatusPending, now)))
	n, err = tasks.Count(ctx, store.Filter{store.ContainsFold("title", "ça va")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := tasks.FindOne(ctx, store.Filter{store.ContainsFold("title", "Ça Va")})
	require.NoError(t, err)
	assert.Equal(t, "ÇA VA BIEN", found.Title)

	_, err = tasks.FindOne(ctx, store.Filter{store.ContainsFold("title", "nothing")})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = tasks.Find(ctx, store.Query{Filter: store.Filter{store.ContainsFold("no_such_column", "x")}})
	assert.Error(t, err)
}

func TestCollection_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	users := NewCollection[models.User](newTestDB(t))

	now := time.Now().UTC()
	mk := func(email string) *models.User {
		return &models.User{
			ID:        uuid.Must(uuid.NewV4()),
			Username:  "ada",
			Email:     email,
			Password:  "pw",
			Settings:  models.UserSettings{Theme: "light", Notifications: true},
			CreatedAt: now,
		}
	}

	require.NoError(t, users.Insert(ctx, mk("ada@example.com")))
	err := users.Insert(ctx, mk("ada@example.com"))
	assert.True(t, errors.Is(err, store.ErrDuplicateKey), "got %v", err)

	require.NoError(t, users.Insert(ctx, mk("ADA@example.com")))

	found, err := users.FindOne(ctx, store.Filter{store.Eq("email", "ada@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "light", found.Settings.Theme)
	assert.True(t, found.Settings.Notifications)

	_, err = users.FindOne(ctx, store.Filter{store.Eq("email", "nobody@example.com")})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
