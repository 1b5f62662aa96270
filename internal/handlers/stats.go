package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/services"
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.statsService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, verbGet, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
