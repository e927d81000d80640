// Package dataset reads and writes the persisted hospital and forecast tables.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hcda/models"
)

const dateLayout = "2006-01-02"

var (
	ErrEmpty         = errors.New("table has no rows")
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformed     = errors.New("malformed value")
	ErrNotContiguous = errors.New("dates are not a contiguous daily sequence")
)

// HistoryColumns is the exact header of the hospital table.
var HistoryColumns = []string{
	"date",
	"patients",
	"admissions",
	"discharges",
	"beds_occupied",
	"icu_occupied",
	"oxygen_usage",
	"emergencies",
	"temperature",
	"rainfall",
	"month",
}

// RequiredColumns must be present for a table to be forecastable.
var RequiredColumns = []string{"date", "patients", "temperature", "month"}

// ForecastColumns labels the exported forecast table.
var ForecastColumns = []string{"Date", "Predicted Patients", "Lower Estimate", "Upper Estimate"}

func LoadHistory(path string) ([]models.HospitalDailyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	records, err := ReadHistory(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadHistory parses a hospital table. Columns may appear in any order;
// optional columns that are absent read as zero.
func ReadHistory(r io.Reader) ([]models.HospitalDailyRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range RequiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var records []models.HospitalDailyRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrEmpty
	}
	if err := CheckContiguous(records); err != nil {
		return nil, err
	}
	return records, nil
}

func parseRow(row []string, index map[string]int) (models.HospitalDailyRecord, error) {
	var rec models.HospitalDailyRecord

	date, err := time.Parse(dateLayout, strings.TrimSpace(row[index["date"]]))
	if err != nil {
		return rec, fmt.Errorf("%w: date %q", ErrMalformed, row[index["date"]])
	}
	rec.Date = date

	fields := []struct {
		name string
		dst  *int
	}{
		{"patients", &rec.Patients},
		{"admissions", &rec.Admissions},
		{"discharges", &rec.Discharges},
		{"beds_occupied", &rec.BedsOccupied},
		{"icu_occupied", &rec.ICUOccupied},
		{"oxygen_usage", &rec.OxygenUsage},
		{"emergencies", &rec.Emergencies},
		{"temperature", &rec.Temperature},
		{"rainfall", &rec.Rainfall},
		{"month", &rec.Month},
	}
	for _, f := range fields {
		i, ok := index[f.name]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(row[i]))
		if err != nil {
			return rec, fmt.Errorf("%w: %s %q", ErrMalformed, f.name, row[i])
		}
		*f.dst = v
	}
	return rec, nil
}

// CheckContiguous verifies that every record is exactly one day after the
// previous one.
func CheckContiguous(records []models.HospitalDailyRecord) error {
	for i := 1; i < len(records); i++ {
		want := records[i-1].Date.AddDate(0, 0, 1)
		if !records[i].Date.Equal(want) {
			return fmt.Errorf("%w: %s follows %s", ErrNotContiguous,
				records[i].Date.Format(dateLayout), records[i-1].Date.Format(dateLayout))
		}
	}
	return nil
}

func WriteHistory(w io.Writer, records []models.HospitalDailyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HistoryColumns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(dateLayout),
			strconv.Itoa(r.Patients),
			strconv.Itoa(r.Admissions),
			strconv.Itoa(r.Discharges),
			strconv.Itoa(r.BedsOccupied),
			strconv.Itoa(r.ICUOccupied),
			strconv.Itoa(r.OxygenUsage),
			strconv.Itoa(r.Emergencies),
			strconv.Itoa(r.Temperature),
			strconv.Itoa(r.Rainfall),
			strconv.Itoa(r.Month),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func SaveHistory(path string, records []models.HospitalDailyRecord) error {
	return writeFile(path, func(w io.Writer) error { return WriteHistory(w, records) })
}

// WriteForecast writes forecast rows with human-readable column labels.
func WriteForecast(w io.Writer, records []models.ForecastRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ForecastColumns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(dateLayout),
			strconv.FormatFloat(r.Predicted, 'f', 2, 64),
			strconv.FormatFloat(r.Lower, 'f', 2, 64),
			strconv.FormatFloat(r.Upper, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func SaveForecast(path string, records []models.ForecastRecord) error {
	return writeFile(path, func(w io.Writer) error { return WriteForecast(w, records) })
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
