package models

import (
	"time"

	"github.com/google/uuid"
)

// ForecastRecord is one predicted day. All three values are non-negative.
type ForecastRecord struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// ForecastRun describes the latest persisted batch forecast.
type ForecastRun struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	Horizon        int       `gorm:"column:horizon" json:"horizon"`
	HistoryEnd     time.Time `gorm:"column:history_end" json:"history_end"`
	Status         string    `gorm:"column:status" json:"status"`
	Peak           float64   `gorm:"column:peak" json:"peak"`
	Threshold      float64   `gorm:"column:threshold" json:"threshold"`
	HistoricalMean float64   `gorm:"column:historical_mean" json:"historical_mean"`
}

func (ForecastRun) TableName() string { return "forecast_runs" }

type StoredForecast struct {
	RunID     uuid.UUID `gorm:"column:run_id;type:uuid;primaryKey" json:"run_id"`
	Date      time.Time `gorm:"column:ds;type:date;primaryKey" json:"date"`
	Predicted float64   `gorm:"column:predicted" json:"predicted"`
	Lower     float64   `gorm:"column:lower_bound" json:"lower"`
	Upper     float64   `gorm:"column:upper_bound" json:"upper"`
}

func (StoredForecast) TableName() string { return "forecasts" }
