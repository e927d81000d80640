package models

import "time"

// HospitalDailyRecord is one row of the daily hospital operations table.
type HospitalDailyRecord struct {
	Date         time.Time `json:"date"`
	Patients     int       `json:"patients"`
	Admissions   int       `json:"admissions"`
	Discharges   int       `json:"discharges"`
	BedsOccupied int       `json:"beds_occupied"`
	ICUOccupied  int       `json:"icu_occupied"`
	OxygenUsage  int       `json:"oxygen_usage"`
	Emergencies  int       `json:"emergencies"`
	Temperature  int       `json:"temperature"`
	Rainfall     int       `json:"rainfall"`
	Month        int       `json:"month"`

	// Anomaly marks a day that received an injected surge. It only exists in
	// memory; the persisted table does not carry it.
	Anomaly bool `json:"anomaly,omitempty"`
}

// Summary holds the headline statistics shown on the dashboard.
type Summary struct {
	Days   int       `json:"days"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Mean   float64   `json:"mean"`
	Max    int       `json:"max"`
	Latest int       `json:"latest"`
}
