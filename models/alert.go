package models

import "time"

type AlertStatus string

const (
	AlertEscalate AlertStatus = "ESCALATE"
	AlertNormal   AlertStatus = "NORMAL"
)

// AlertDecision is the outcome of comparing a forecast peak against the
// historical load threshold.
type AlertDecision struct {
	Status         AlertStatus `json:"status"`
	Peak           float64     `json:"peak"`
	Threshold      float64     `json:"threshold"`
	HistoricalMean float64     `json:"historical_mean"`
	Multiplier     float64     `json:"multiplier"`
	Message        string      `json:"message"`
	Actions        []string    `json:"actions,omitempty"`
	GeneratedAt    time.Time   `json:"generated_at"`
}

func (d AlertDecision) Escalated() bool { return d.Status == AlertEscalate }
