package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"hcda/models"
)

var ErrNoData = errors.New("chart: nothing to plot")

const (
	Width  = 10 * vg.Inch
	Height = 4 * vg.Inch
)

var (
	actualColor   = color.RGBA{R: 33, G: 33, B: 33, A: 255}
	forecastColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor     = color.RGBA{R: 31, G: 119, B: 180, A: 60}
)

// History plots the daily patient count.
func History(records []models.HospitalDailyRecord) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	p := newPlot("Patient Trend")

	line, err := plotter.NewLine(actuals(records))
	if err != nil {
		return nil, fmt.Errorf("history line: %w", err)
	}
	line.Color = forecastColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	return p, nil
}

// Forecast plots observed points, the predicted line and the uncertainty
// band across history and horizon.
func Forecast(history []models.HospitalDailyRecord, records []models.ForecastRecord) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	p := newPlot("Patient Forecast")

	band, err := plotter.NewPolygon(bandOutline(records))
	if err != nil {
		return nil, fmt.Errorf("forecast band: %w", err)
	}
	band.Color = bandColor
	band.LineStyle.Width = 0

	pred := make(plotter.XYs, len(records))
	for i, r := range records {
		pred[i].X = float64(r.Date.Unix())
		pred[i].Y = r.Predicted
	}
	line, err := plotter.NewLine(pred)
	if err != nil {
		return nil, fmt.Errorf("forecast line: %w", err)
	}
	line.Color = forecastColor
	line.Width = vg.Points(1.5)

	p.Add(band, line)
	p.Legend.Add("forecast", line)
	p.Legend.Add("uncertainty", band)

	if len(history) > 0 {
		points, err := plotter.NewScatter(actuals(history))
		if err != nil {
			return nil, fmt.Errorf("actuals: %w", err)
		}
		points.Color = actualColor
		points.Radius = vg.Points(1.5)
		p.Add(points)
		p.Legend.Add("actual", points)
	}
	p.Legend.Top = true
	return p, nil
}

// Render writes p in the given format: svg, png, pdf or eps.
func Render(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes p to path, choosing the format from the extension.
func Save(path string, p *plot.Plot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return p.Save(Width, Height, path)
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Patients"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())
	return p
}

func actuals(records []models.HospitalDailyRecord) plotter.XYs {
	xys := make(plotter.XYs, len(records))
	for i, r := range records {
		xys[i].X = float64(r.Date.Unix())
		xys[i].Y = float64(r.Patients)
	}
	return xys
}

func bandOutline(records []models.ForecastRecord) plotter.XYs {
	n := len(records)
	xys := make(plotter.XYs, 0, 2*n)
	for _, r := range records {
		xys = append(xys, plotter.XY{X: float64(r.Date.Unix()), Y: r.Upper})
	}
	for i := n - 1; i >= 0; i-- {
		xys = append(xys, plotter.XY{X: float64(records[i].Date.Unix()), Y: records[i].Lower})
	}
	return xys
}
