package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/logging"
	"taskboard/internal/models"
	"taskboard/internal/services"
	"taskboard/internal/store"
)

// verb identifies the route kind an error came from; the same error maps to
// different statuses depending on it.
type verb int

const (
	verbList verb = iota
	verbGet
	verbCreate
	verbUpdate
	verbDelete
)

func (v verb) String() string {
	switch v {
	case verbList:
		return "list"
	case verbGet:
		return "get"
	case verbCreate:
		return "create"
	case verbUpdate:
		return "update"
	case verbDelete:
		return "delete"
	}
	return "unknown"
}

const emailExistsMessage = "Email already exists"

// statusFor is the single place that classifies errors into HTTP statuses.
// A malformed identifier is a 400 on update but a 500 on read and delete,
// which is how existing clients observe it.
func statusFor(v verb, err error) (int, string) {
	var notFound *services.NotFoundError
	var invalid *models.ValidationError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.Is(err, services.ErrEmailExists):
		return http.StatusBadRequest, emailExistsMessage
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, store.ErrDuplicateKey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrMalformedID):
		if v == verbUpdate {
			return http.StatusBadRequest, err.Error()
		}
		return http.StatusInternalServerError, err.Error()
	case v == verbCreate || v == verbUpdate:
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func respondError(c *gin.Context, v verb, err error) {
	status, message := statusFor(v, err)

	entry := logging.Logger.WithFields(logrus.Fields{
		"verb":   v.String(),
		"path":   c.FullPath(),
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	c.JSON(status, gin.H{"error": message})
}
