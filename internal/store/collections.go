package store

import "taskboard/internal/models"

// Collections groups the four entity collections of one backend.
type Collections struct {
	Tasks      Collection[models.Task]
	Categories Collection[models.Category]
	Notes      Collection[models.Note]
	Users      Collection[models.User]
}

// Storage collection and table names.
const (
	TasksName      = "tasks"
	CategoriesName = "categories"
	NotesName      = "notes"
	UsersName      = "users"
)
