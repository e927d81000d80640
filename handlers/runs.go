package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hcda/models"
)

// RunsHandler reads the batch forecast persisted by `hcda forecast`.
type RunsHandler struct {
	db *gorm.DB
}

func NewRunsHandler(db *gorm.DB) *RunsHandler {
	return &RunsHandler{db: db}
}

type LatestRunResponse struct {
	Run      models.ForecastRun      `json:"run"`
	Forecast []models.StoredForecast `json:"forecast"`
}

func (h *RunsHandler) GetLatest(c *gin.Context) {
	ctx := c.Request.Context()

	var runs []models.ForecastRun
	if err := h.db.WithContext(ctx).Order("created_at DESC").Limit(1).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}
	if len(runs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no forecast run stored"})
		return
	}

	var rows []models.StoredForecast
	if err := h.db.WithContext(ctx).Where("run_id = ?", runs[0].ID).Order("ds").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	c.JSON(http.StatusOK, LatestRunResponse{Run: runs[0], Forecast: rows})
}
