package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/services"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// GetTasks handles GET /api/tasks?category&status&priority&search.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	tasks, err := h.taskService.ListTasks(c.Request.Context(), services.TaskFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, verbList, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, verbGet, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input models.TaskInput
	if err := bindBody(c, &input); err != nil {
		respondError(c, verbCreate, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), input)
	if err != nil {
		respondError(c, verbCreate, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	changes, err := rawBody(c)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskService.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, verbDelete, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
