package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/services"
)

type NoteHandler struct {
	noteService services.NoteService
}

func NewNoteHandler(noteService services.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// GetNotes handles GET /api/notes?taskId&search.
func (h *NoteHandler) GetNotes(c *gin.Context) {
	notes, err := h.noteService.ListNotes(c.Request.Context(), services.NoteFilter{
		TaskID: c.Query("taskId"),
		Search: c.Query("search"),
	})
	if err != nil {
		respondError(c, verbList, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *NoteHandler) GetNoteByID(c *gin.Context) {
	note, err := h.noteService.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, verbGet, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *NoteHandler) CreateNote(c *gin.Context) {
	var input models.NoteInput
	if err := bindBody(c, &input); err != nil {
		respondError(c, verbCreate, err)
		return
	}

	note, err := h.noteService.CreateNote(c.Request.Context(), input)
	if err != nil {
		respondError(c, verbCreate, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *NoteHandler) UpdateNote(c *gin.Context) {
	changes, err := rawBody(c)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}

	note, err := h.noteService.UpdateNote(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *NoteHandler) DeleteNote(c *gin.Context) {
	if err := h.noteService.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, verbDelete, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted successfully"})
}
