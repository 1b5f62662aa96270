package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/services"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, verbList, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	category, err := h.categoryService.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, verbGet, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var input models.CategoryInput
	if err := bindBody(c, &input); err != nil {
		respondError(c, verbCreate, err)
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), input)
	if err != nil {
		respondError(c, verbCreate, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	changes, err := rawBody(c)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.categoryService.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, verbDelete, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
