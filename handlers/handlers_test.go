package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hcda/alert"
	"hcda/dataset"
	"hcda/export"
	"hcda/forecast"
	"hcda/generator"
	"hcda/models"
	"hcda/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testBounds = HorizonBounds{Min: 7, Max: 30, Default: 30}

func writeHistory(t *testing.T, days int) string {
	t.Helper()
	records, err := generator.Generate(generator.Params{
		Seed:  42,
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:  days,
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "h_data.csv")
	require.NoError(t, dataset.SaveHistory(path, records))
	return path
}

func newRouter(path string) *gin.Engine {
	history := services.NewHistoryCache(path)
	forecaster := services.NewForecaster(forecast.NewDefaultPipeline(0.8, 7), alert.NewPolicy(1.2))
	logger := zerolog.Nop()

	dash := NewDashboardHandler(history, forecaster, testBounds, logger)
	api := NewAPIHandler(history, forecaster, testBounds, logger)

	r := gin.New()
	r.GET("/", dash.Index)
	r.GET("/forecast", dash.Forecast)
	r.GET("/health", Health)
	v1 := r.Group("/api/v1")
	v1.GET("/summary", api.GetSummary)
	v1.GET("/history", api.GetHistory)
	v1.POST("/forecast", api.PostForecast)
	v1.GET("/forecast/export.xlsx", api.ExportForecast)
	return r
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIndex(t *testing.T) {
	r := newRouter(writeHistory(t, 120))

	w := do(r, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Average Patients")
	assert.Contains(t, body, "Peak Patients")
	assert.Contains(t, body, "Latest Patients")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, `min="7" max="30" value="30"`)
	assert.NotContains(t, body, "<tr><td>", "no forecast runs on load")
}

func TestDashboardForecast(t *testing.T) {
	r := newRouter(writeHistory(t, 365))

	w := do(r, http.MethodGet, "/forecast?horizon=7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, 7, strings.Count(body, "<tr><td>"))
	assert.Contains(t, body, "Predicted Patients")
	assert.Contains(t, body, "Lower Estimate")
	assert.Contains(t, body, "Upper Estimate")
	assert.Contains(t, body, "2025-01-01")
	assert.NotContains(t, body, "2025-01-08")
	assert.True(t,
		strings.Contains(body, "High patient load expected") ||
			strings.Contains(body, "Patient load expected to remain normal"))
}

func TestDashboardForecastIdempotent(t *testing.T) {
	r := newRouter(writeHistory(t, 200))

	first := do(r, http.MethodGet, "/forecast?horizon=10", nil)
	second := do(r, http.MethodGet, "/forecast?horizon=10", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestDashboardForecastInvalidHorizon(t *testing.T) {
	r := newRouter(writeHistory(t, 60))

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"below range", "horizon=3", "between 7 and 30"},
		{"above range", "horizon=31", "between 7 and 30"},
		{"not a number", "horizon=abc", "not a whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/forecast?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Contains(t, w.Body.String(), "Average Patients")
		})
	}
}

func TestDashboardFitErrorRendersInline(t *testing.T) {
	r := newRouter(writeHistory(t, 5))

	w := do(r, http.MethodGet, "/forecast?horizon=7", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Forecast failed")

	// the server keeps serving
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
}

func TestDashboardMissingFile(t *testing.T) {
	r := newRouter(filepath.Join(t.TempDir(), "absent.csv"))

	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Could not load hospital data")
}

func TestHealth(t *testing.T) {
	r := newRouter("unused.csv")
	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"UP"`)
}

func TestAPISummary(t *testing.T) {
	r := newRouter(writeHistory(t, 30))

	w := do(r, http.MethodGet, "/api/v1/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 30, got.Days)
	assert.GreaterOrEqual(t, got.Max, got.Latest)
	assert.GreaterOrEqual(t, got.Mean, 80.0)
}

type historyPage struct {
	Data       []models.HospitalDailyRecord `json:"data"`
	NextCursor string                       `json:"next_cursor"`
	HasMore    bool                         `json:"has_more"`
}

func TestAPIHistoryPagination(t *testing.T) {
	r := newRouter(writeHistory(t, 25))

	fetch := func(t *testing.T, query string) historyPage {
		t.Helper()
		w := do(r, http.MethodGet, "/api/v1/history?"+query, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page historyPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		return page
	}

	first := fetch(t, "limit=10")
	require.Len(t, first.Data, 10)
	assert.True(t, first.HasMore)
	assert.Equal(t, "2024-01-25", first.Data[0].Date.Format(time.DateOnly))
	assert.Equal(t, "2024-01-16", first.NextCursor)

	second := fetch(t, "limit=10&before="+first.NextCursor)
	require.Len(t, second.Data, 10)
	assert.True(t, second.HasMore)
	assert.Equal(t, "2024-01-15", second.Data[0].Date.Format(time.DateOnly))
	assert.Equal(t, "2024-01-06", second.NextCursor)

	last := fetch(t, "limit=10&before="+second.NextCursor)
	assert.Len(t, last.Data, 5)
	assert.Equal(t, "2024-01-05", last.Data[0].Date.Format(time.DateOnly))
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)
}

func TestAPIPostForecast(t *testing.T) {
	r := newRouter(writeHistory(t, 365))

	w := do(r, http.MethodPost, "/api/v1/forecast", []byte(`{"horizon":14}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 14, resp.Horizon)
	assert.Equal(t, "2024-12-30", resp.HistoryEnd)
	require.Len(t, resp.Forecast, 14)
	for _, rec := range resp.Forecast {
		assert.GreaterOrEqual(t, rec.Lower, 0.0)
		assert.LessOrEqual(t, rec.Lower, rec.Predicted)
		assert.LessOrEqual(t, rec.Predicted, rec.Upper)
	}
	assert.Contains(t, []models.AlertStatus{models.AlertEscalate, models.AlertNormal}, resp.Alert.Status)
}

func TestAPIPostForecastDefaultsAndErrors(t *testing.T) {
	r := newRouter(writeHistory(t, 120))

	w := do(r, http.MethodPost, "/api/v1/forecast", []byte(`{}`))
	require.Equal(t, http.StatusOK, w.Code)
	var resp ForecastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 30, resp.Horizon)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/forecast", []byte(`{"horizon":45}`)).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/forecast", []byte(`{"horizon":"x"}`)).Code)
}

func TestAPIExportForecast(t *testing.T) {
	r := newRouter(writeHistory(t, 120))

	w := do(r, http.MethodGet, "/api/v1/forecast/export.xlsx?horizon=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "forecast_20240429_7d.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.ForecastSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 8)
}

func TestHorizonBoundsParse(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 30, false},
		{"7", 7, false},
		{"30", 30, false},
		{"6", 0, true},
		{"31", 0, true},
		{"7.5", 0, true},
	}
	for _, tt := range tests {
		got, err := testBounds.Parse(tt.raw)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrHorizonRange, "raw=%q", tt.raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
