package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hcda/dataset"
	"hcda/export"
	"hcda/metrics"
	"hcda/models"
	"hcda/services"
)

type APIHandler struct {
	history    *services.HistoryCache
	forecaster *services.Forecaster
	bounds     HorizonBounds
	logger     zerolog.Logger
}

func NewAPIHandler(history *services.HistoryCache, forecaster *services.Forecaster, bounds HorizonBounds, logger zerolog.Logger) *APIHandler {
	return &APIHandler{history: history, forecaster: forecaster, bounds: bounds, logger: logger}
}

type ForecastRequest struct {
	Horizon *int `json:"horizon"`
}

type ForecastResponse struct {
	Horizon    int                     `json:"horizon"`
	HistoryEnd string                  `json:"history_end"`
	Forecast   []models.ForecastRecord `json:"forecast"`
	Alert      models.AlertDecision    `json:"alert"`
}

func (h *APIHandler) GetSummary(c *gin.Context) {
	records, err := h.history.Records()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dataset.Summarize(records))
}

// GetHistory pages through the table newest first.
func (h *APIHandler) GetHistory(c *gin.Context) {
	records, err := h.history.Records()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	p := ParsePagination(c)

	end := len(records)
	if p.Before != nil {
		before := *p.Before
		end = sort.Search(len(records), func(i int) bool {
			return !records[i].Date.Before(before)
		})
	}

	rows := make([]models.HospitalDailyRecord, 0, min(p.Limit, end))
	for i := end - 1; i >= 0 && len(rows) < p.Limit; i-- {
		rows = append(rows, records[i])
	}

	hasMore := end-len(rows) > 0
	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = rows[len(rows)-1].Date.Format(time.DateOnly)
	}

	c.JSON(http.StatusOK, CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore})
}

func (h *APIHandler) PostForecast(c *gin.Context) {
	var req ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	horizon := h.bounds.clamp(h.bounds.Default)
	if req.Horizon != nil {
		n, err := h.bounds.Check(*req.Horizon)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		horizon = n
	}

	out, err := h.run(horizon)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ForecastResponse{
		Horizon:    horizon,
		HistoryEnd: out.Result.HistoryEnd.Format(time.DateOnly),
		Forecast:   out.Future(),
		Alert:      out.Decision,
	})
}

func (h *APIHandler) ExportForecast(c *gin.Context) {
	horizon, err := h.bounds.Parse(c.Query("horizon"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.run(horizon)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	data, err := export.ForecastXLSX(out.Future(), out.Decision)
	if err != nil {
		h.logger.Error().Err(err).Msg("xlsx export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	filename := fmt.Sprintf("forecast_%s_%dd.xlsx", out.Result.HistoryEnd.Format("20060102"), horizon)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, data)
}

func (h *APIHandler) run(horizon int) (*services.Outcome, error) {
	records, err := h.history.Records()
	if err != nil {
		return nil, err
	}
	out, err := h.forecaster.Run(records, horizon, metrics.SourceAPI)
	if err != nil {
		h.logger.Warn().Err(err).Int("horizon", horizon).Msg("forecast failed")
		return nil, err
	}
	return out, nil
}
