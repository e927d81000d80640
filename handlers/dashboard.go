package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gonum.org/v1/plot"

	"hcda/chart"
	"hcda/dataset"
	"hcda/metrics"
	"hcda/models"
	"hcda/services"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type dashboardView struct {
	Error         string
	Summary       *models.Summary
	HistoryChart  template.HTML
	ForecastChart template.HTML
	Bounds        HorizonBounds
	Horizon       int
	Rows          []models.ForecastRecord
	Decision      *models.AlertDecision
}

// DashboardHandler serves the HTML dashboard. Forecasts run synchronously per
// request and are never cached.
type DashboardHandler struct {
	history    *services.HistoryCache
	forecaster *services.Forecaster
	bounds     HorizonBounds
	logger     zerolog.Logger
}

func NewDashboardHandler(history *services.HistoryCache, forecaster *services.Forecaster, bounds HorizonBounds, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{history: history, forecaster: forecaster, bounds: bounds, logger: logger}
}

func (h *DashboardHandler) Index(c *gin.Context) {
	view := h.baseView()
	records, ok := h.loadHistory(c, &view)
	if !ok {
		return
	}
	h.addHistory(&view, records)
	h.render(c, http.StatusOK, view)
}

func (h *DashboardHandler) Forecast(c *gin.Context) {
	view := h.baseView()
	records, ok := h.loadHistory(c, &view)
	if !ok {
		return
	}
	h.addHistory(&view, records)

	horizon, err := h.bounds.Parse(c.Query("horizon"))
	if err != nil {
		view.Error = err.Error()
		h.render(c, http.StatusBadRequest, view)
		return
	}
	view.Horizon = horizon

	out, err := h.forecaster.Run(records, horizon, metrics.SourceDashboard)
	if err != nil {
		h.logger.Warn().Err(err).Int("horizon", horizon).Msg("dashboard forecast failed")
		view.Error = "Forecast failed: " + err.Error()
		h.render(c, statusFor(err), view)
		return
	}

	view.Rows = out.Future()
	view.Decision = &out.Decision
	if p, err := chart.Forecast(records, out.Result.Records); err == nil {
		view.ForecastChart = h.svg(p)
	} else {
		h.logger.Error().Err(err).Msg("forecast chart failed")
	}
	h.render(c, http.StatusOK, view)
}

func (h *DashboardHandler) baseView() dashboardView {
	return dashboardView{Bounds: h.bounds, Horizon: h.bounds.clamp(h.bounds.Default)}
}

func (h *DashboardHandler) loadHistory(c *gin.Context, view *dashboardView) ([]models.HospitalDailyRecord, bool) {
	records, err := h.history.Records()
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.history.Path()).Msg("history load failed")
		view.Error = "Could not load hospital data: " + err.Error()
		h.render(c, statusFor(err), *view)
		return nil, false
	}
	return records, true
}

func (h *DashboardHandler) addHistory(view *dashboardView, records []models.HospitalDailyRecord) {
	summary := dataset.Summarize(records)
	view.Summary = &summary
	if p, err := chart.History(records); err == nil {
		view.HistoryChart = h.svg(p)
	} else {
		h.logger.Error().Err(err).Msg("history chart failed")
	}
}

// svg renders p for inline embedding, without the XML prolog.
func (h *DashboardHandler) svg(p *plot.Plot) template.HTML {
	var buf bytes.Buffer
	if err := chart.Render(&buf, p, "svg"); err != nil {
		h.logger.Error().Err(err).Msg("svg render failed")
		return ""
	}
	out := buf.String()
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return template.HTML(out)
}

func (h *DashboardHandler) render(c *gin.Context, status int, view dashboardView) {
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		h.logger.Error().Err(err).Msg("template render failed")
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
