// Package alert classifies a forecast as elevated or normal patient load.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hcda/models"
)

const DefaultMultiplier = 1.2

// EscalationActions is the fixed checklist attached to every escalation.
var EscalationActions = []string{
	"Increase bed availability",
	"Prepare ICU capacity",
	"Ensure oxygen stock",
	"Adjust staff scheduling",
}

const normalMessage = "Patient load expected to remain normal. No emergency resource expansion required."

type Policy struct {
	Multiplier float64
	now        func() time.Time
}

func NewPolicy(multiplier float64) Policy {
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return Policy{Multiplier: multiplier, now: time.Now}
}

// Threshold is the patient count above which a forecast escalates.
func (p Policy) Threshold(historicalMean float64) float64 {
	return historicalMean * p.Multiplier
}

// Classify escalates when the forecast peak strictly exceeds the threshold.
func (p Policy) Classify(historicalMean float64, forecast []float64) models.AlertDecision {
	threshold := p.Threshold(historicalMean)

	peak := 0.0
	for i, v := range forecast {
		if i == 0 || v > peak {
			peak = v
		}
	}

	d := models.AlertDecision{
		Peak:           peak,
		Threshold:      threshold,
		HistoricalMean: historicalMean,
		Multiplier:     p.Multiplier,
	}
	if p.now != nil {
		d.GeneratedAt = p.now().UTC()
	}

	if len(forecast) > 0 && peak > threshold {
		d.Status = models.AlertEscalate
		d.Message = fmt.Sprintf("High patient load expected! Peak prediction: %d patients (threshold %.1f).",
			int(peak), threshold)
		d.Actions = append([]string(nil), EscalationActions...)
		return d
	}

	d.Status = models.AlertNormal
	d.Message = normalMessage
	return d
}

// Classify applies the default policy.
func Classify(historicalMean float64, forecast []float64) models.AlertDecision {
	return NewPolicy(DefaultMultiplier).Classify(historicalMean, forecast)
}

// Notifier delivers a decision to an external channel.
type Notifier interface {
	Notify(ctx context.Context, d models.AlertDecision) error
}

type NotifierFunc func(ctx context.Context, d models.AlertDecision) error

func (f NotifierFunc) Notify(ctx context.Context, d models.AlertDecision) error { return f(ctx, d) }

// MultiNotifier delivers to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, d models.AlertDecision) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
