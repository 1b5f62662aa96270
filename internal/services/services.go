package services

import "taskboard/internal/store"

// Services bundles one instance of each service over the same collections.
type Services struct {
	Tasks      TaskService
	Categories CategoryService
	Notes      NoteService
	Users      UserService
	Stats      StatsService
}

func New(cols *store.Collections, opts Options, statsCache *StatsCacheOptions) *Services {
	return &Services{
		Tasks:      NewTaskService(cols.Tasks, opts),
		Categories: NewCategoryService(cols.Categories, opts),
		Notes:      NewNoteService(cols.Notes, opts),
		Users:      NewUserService(cols.Users, opts),
		Stats:      NewStatsService(cols, opts, statsCache),
	}
}
