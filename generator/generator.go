// Package generator produces the synthetic daily hospital operations table.
package generator

import (
	"errors"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"hcda/models"
)

const (
	basePatients = 120
	minPatients  = 50
	anomalyRate  = 0.03

	summerFactor = 1.15
	winterFactor = 1.25
)

var (
	ErrInvalidDays  = errors.New("day count must be positive")
	ErrInvalidStart = errors.New("start date is required")
)

type Params struct {
	Seed  uint64
	Start time.Time
	Days  int
}

// Generate returns one record per day starting at p.Start. The same Params
// always produce the same records.
func Generate(p Params) ([]models.HospitalDailyRecord, error) {
	if p.Days <= 0 {
		return nil, ErrInvalidDays
	}
	if p.Start.IsZero() {
		return nil, ErrInvalidStart
	}

	g := newSampler(p.Seed)
	start := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, time.UTC)

	records := make([]models.HospitalDailyRecord, 0, p.Days)
	for i := 0; i < p.Days; i++ {
		records = append(records, g.day(start.AddDate(0, 0, i)))
	}
	return records, nil
}

// SeasonalFactor is the patient multiplier for a calendar month.
func SeasonalFactor(month time.Month) float64 {
	switch month {
	case time.June, time.July, time.August:
		return summerFactor
	case time.November, time.December, time.January:
		return winterFactor
	default:
		return 1.0
	}
}

type sampler struct {
	src rand.Source
	rng *rand.Rand
}

func newSampler(seed uint64) *sampler {
	src := rand.NewPCG(seed, seed)
	return &sampler{src: src, rng: rand.New(src)}
}

// intn draws from [lo, hi).
func (s *sampler) intn(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo)
}

func (s *sampler) uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: s.src}.Rand()
}

func (s *sampler) day(date time.Time) models.HospitalDailyRecord {
	month := date.Month()

	patients := int(float64(basePatients)*SeasonalFactor(month) + float64(s.intn(-15, 20)))
	patients = max(patients, minPatients)

	admissions := int(float64(patients) * s.uniform(0.25, 0.35))
	discharges := int(float64(admissions) * s.uniform(0.7, 0.9))

	beds := int(float64(patients) * s.uniform(0.75, 0.9))
	icu := int(float64(patients) * s.uniform(0.08, 0.15))
	oxygen := int(float64(icu) * s.uniform(20, 30))

	emergencies := int(float64(admissions) * s.uniform(0.2, 0.4))

	temperature := s.intn(20, 40)
	rainfall := s.intn(0, 20)

	rec := models.HospitalDailyRecord{
		Date:        date,
		Temperature: temperature,
		Rainfall:    rainfall,
		Month:       int(month),
	}

	// Surge days add load on top of the derived counts.
	if s.rng.Float64() < anomalyRate {
		patients += s.intn(40, 80)
		icu += s.intn(5, 10)
		oxygen += s.intn(100, 200)
		emergencies += s.intn(10, 20)
		rec.Anomaly = true
	}

	rec.Patients = patients
	rec.Admissions = admissions
	rec.Discharges = discharges
	rec.BedsOccupied = beds
	rec.ICUOccupied = icu
	rec.OxygenUsage = oxygen
	rec.Emergencies = emergencies
	return rec
}

// AnomalyDates lists the days that received a surge.
func AnomalyDates(records []models.HospitalDailyRecord) []time.Time {
	var dates []time.Time
	for _, r := range records {
		if r.Anomaly {
			dates = append(dates, r.Date)
		}
	}
	return dates
}
