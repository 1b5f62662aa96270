package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"taskboard/internal/models"
	"taskboard/internal/services"
)

// UserResponse is the only shape a user leaves the API in. It has no
// password field.
type UserResponse struct {
	ID        uuid.UUID           `json:"id"`
	Username  string              `json:"username"`
	Email     string              `json:"email"`
	Avatar    *string             `json:"avatar"`
	Settings  models.UserSettings `json:"settings"`
	CreatedAt time.Time           `json:"createdAt"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Settings:  u.Settings,
		CreatedAt: u.CreatedAt,
	}
}

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, verbList, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, verbGet, err)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var input models.UserInput
	if err := bindBody(c, &input); err != nil {
		respondError(c, verbCreate, err)
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), input)
	if err != nil {
		respondError(c, verbCreate, err)
		return
	}
	c.JSON(http.StatusCreated, NewUserResponse(user))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	changes, err := rawBody(c)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		respondError(c, verbUpdate, err)
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, verbDelete, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
