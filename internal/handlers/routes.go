package handlers

import (
	"github.com/gin-gonic/gin"

	"taskboard/internal/services"
)

// RegisterAPI mounts the entity routes and /stats on api, which the caller
// has already prefixed with /api.
func RegisterAPI(api *gin.RouterGroup, svc *services.Services) {
	tasks := NewTaskHandler(svc.Tasks)
	api.GET("/tasks", tasks.GetTasks)
	api.GET("/tasks/:id", tasks.GetTaskByID)
	api.POST("/tasks", tasks.CreateTask)
	api.PUT("/tasks/:id", tasks.UpdateTask)
	api.DELETE("/tasks/:id", tasks.DeleteTask)

	categories := NewCategoryHandler(svc.Categories)
	api.GET("/categories", categories.GetCategories)
	api.GET("/categories/:id", categories.GetCategoryByID)
	api.POST("/categories", categories.CreateCategory)
	api.PUT("/categories/:id", categories.UpdateCategory)
	api.DELETE("/categories/:id", categories.DeleteCategory)

	notes := NewNoteHandler(svc.Notes)
	api.GET("/notes", notes.GetNotes)
	api.GET("/notes/:id", notes.GetNoteByID)
	api.POST("/notes", notes.CreateNote)
	api.PUT("/notes/:id", notes.UpdateNote)
	api.DELETE("/notes/:id", notes.DeleteNote)

	users := NewUserHandler(svc.Users)
	api.GET("/users", users.GetUsers)
	api.GET("/users/:id", users.GetUserByID)
	api.POST("/users", users.CreateUser)
	api.PUT("/users/:id", users.UpdateUser)
	api.DELETE("/users/:id", users.DeleteUser)

	api.GET("/stats", NewStatsHandler(svc.Stats).GetStats)
}

// RegisterCache mounts the cache operator routes on group.
func RegisterCache(group *gin.RouterGroup, h *CacheHandler) {
	group.GET("/stats", h.GetCacheStats)
	group.GET("/health", h.GetCacheHealth)
	group.POST("/warm", h.WarmCache)
	group.DELETE("/keys/:key", h.EvictCacheKey)
}
