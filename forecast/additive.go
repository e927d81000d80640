package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"hcda/models"
)

const (
	secondsPerDay = 86400.0

	// jitter keeps the normal equations positive definite when a column
	// carries no information (e.g. daily terms on daily data).
	jitter = 1e-8

	// minNoise floors the residual variance, in scaled units, used to weight
	// the priors on the second pass.
	minNoise = 1e-4
)

type Seasonality struct {
	Name   string
	Period float64 // days
	Order  int
}

type AdditiveConfig struct {
	YearlySeasonality bool
	WeeklySeasonality bool
	DailySeasonality  bool
	YearlyOrder       int
	WeeklyOrder       int
	DailyOrder        int

	Regressors []string

	Changepoints          int
	ChangepointRange      float64
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	RegressorPriorScale   float64

	IntervalWidth float64
}

// DefaultAdditiveConfig mirrors the hospital forecast: yearly and weekly
// seasonality, no daily seasonality, temperature and month regressors.
func DefaultAdditiveConfig() AdditiveConfig {
	return AdditiveConfig{
		YearlySeasonality:     true,
		WeeklySeasonality:     true,
		DailySeasonality:      false,
		YearlyOrder:           10,
		WeeklyOrder:           3,
		DailyOrder:            4,
		Regressors:            []string{RegressorTemperature, RegressorMonth},
		Changepoints:          25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		RegressorPriorScale:   10,
		IntervalWidth:         0.8,
	}
}

func (c AdditiveConfig) seasonalities() []Seasonality {
	var out []Seasonality
	if c.YearlySeasonality {
		out = append(out, Seasonality{Name: "yearly", Period: 365.25, Order: c.YearlyOrder})
	}
	if c.WeeklySeasonality {
		out = append(out, Seasonality{Name: "weekly", Period: 7, Order: c.WeeklyOrder})
	}
	if c.DailySeasonality {
		out = append(out, Seasonality{Name: "daily", Period: 1, Order: c.DailyOrder})
	}
	return out
}

// MinHistory is two full cycles of the shortest enabled seasonality.
func (c AdditiveConfig) MinHistory() int {
	shortest := 0.0
	for _, s := range c.seasonalities() {
		if shortest == 0 || s.Period < shortest {
			shortest = s.Period
		}
	}
	if shortest < 1 {
		return 2
	}
	return int(math.Ceil(2 * shortest))
}

// Additive is a piecewise-linear trend plus Fourier seasonality plus linear
// regressor effects, fitted as a MAP estimate under Gaussian priors.
type Additive struct {
	cfg AdditiveConfig
}

func NewAdditive(cfg AdditiveConfig) *Additive {
	return &Additive{cfg: cfg}
}

type regressorScale struct {
	name string
	mu   float64
	sd   float64
}

type additiveFit struct {
	cfg          AdditiveConfig
	seasons      []Seasonality
	regressors   []regressorScale
	t0           float64
	tSpan        float64
	changepoints []float64
	yScale       float64

	beta   *mat.VecDense
	chol   mat.Cholesky
	sigma2 float64
	z      float64
}

func (m *Additive) Fit(history Frame) (Fitted, error) {
	n := history.Len()
	if len(history.Y) != n {
		return nil, fmt.Errorf("%w: %d dates but %d targets", ErrInvalidFrame, n, len(history.Y))
	}
	if need := m.cfg.MinHistory(); n < need {
		return nil, fmt.Errorf("%w: have %d days, need at least %d", ErrInsufficientHistory, n, need)
	}
	for i := 1; i < n; i++ {
		if !history.Dates[i].After(history.Dates[i-1]) {
			return nil, fmt.Errorf("%w: dates not strictly increasing at row %d", ErrInvalidFrame, i)
		}
	}
	for i, y := range history.Y {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, fmt.Errorf("%w: non-finite target at row %d", ErrInvalidFrame, i)
		}
	}

	fit := &additiveFit{
		cfg:     m.cfg,
		seasons: m.cfg.seasonalities(),
		z:       distuv.UnitNormal.Quantile(0.5 + m.cfg.IntervalWidth/2),
	}

	for _, name := range m.cfg.Regressors {
		values, ok := history.Regressors[name]
		if !ok || len(values) != n {
			return nil, fmt.Errorf("%w: %s", ErrMissingRegressor, name)
		}
		scale, err := standardize(name, values)
		if err != nil {
			return nil, err
		}
		fit.regressors = append(fit.regressors, scale)
	}

	fit.t0 = epochDays(history.Dates[0])
	fit.tSpan = epochDays(history.Dates[n-1]) - fit.t0
	fit.changepoints = fit.placeChangepoints(history.Dates)

	for _, y := range history.Y {
		fit.yScale = math.Max(fit.yScale, math.Abs(y))
	}
	if fit.yScale == 0 {
		fit.yScale = 1
	}

	x := fit.design(history)
	y := mat.NewVecDense(n, nil)
	for i, v := range history.Y {
		y.SetVec(i, v/fit.yScale)
	}

	if err := fit.solve(x, y); err != nil {
		return nil, err
	}
	return fit, nil
}

// standardize scales a regressor to zero mean and unit variance, leaving
// binary indicators untouched.
func standardize(name string, values []float64) (regressorScale, error) {
	binary := true
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return regressorScale{}, fmt.Errorf("%w: %s has non-finite values", ErrDegenerateRegressor, name)
		}
		if v != 0 && v != 1 {
			binary = false
		}
	}

	mu, sd := stat.MeanStdDev(values, nil)
	if sd == 0 || math.IsNaN(sd) {
		return regressorScale{}, fmt.Errorf("%w: %s is constant", ErrDegenerateRegressor, name)
	}
	if binary {
		return regressorScale{name: name, mu: 0, sd: 1}, nil
	}
	return regressorScale{name: name, mu: mu, sd: sd}, nil
}

func (f *additiveFit) placeChangepoints(dates []time.Time) []float64 {
	histSize := int(math.Floor(float64(len(dates)) * f.cfg.ChangepointRange))
	count := min(f.cfg.Changepoints, histSize-1)
	if count <= 0 {
		return nil
	}
	out := make([]float64, 0, count)
	for j := 1; j <= count; j++ {
		idx := int(math.Round(float64(j) * float64(histSize-1) / float64(count)))
		out = append(out, f.scaleTime(dates[idx]))
	}
	return out
}

func (f *additiveFit) scaleTime(d time.Time) float64 {
	if f.tSpan == 0 {
		return 0
	}
	return (epochDays(d) - f.t0) / f.tSpan
}

func (f *additiveFit) width() int {
	w := 2 + len(f.changepoints) + len(f.regressors)
	for _, s := range f.seasons {
		w += 2 * s.Order
	}
	return w
}

// row fills dst with the design vector for one timestamp.
func (f *additiveFit) row(dst []float64, d time.Time, regs []float64) {
	t := f.scaleTime(d)
	dst[0] = 1
	dst[1] = t
	col := 2
	for _, s := range f.changepoints {
		dst[col] = math.Max(0, t-s)
		col++
	}

	days := epochDays(d)
	for _, s := range f.seasons {
		for k := 1; k <= s.Order; k++ {
			arg := 2 * math.Pi * float64(k) * days / s.Period
			dst[col] = math.Sin(arg)
			dst[col+1] = math.Cos(arg)
			col += 2
		}
	}

	for i, r := range f.regressors {
		dst[col] = (regs[i] - r.mu) / r.sd
		col++
	}
}

func (f *additiveFit) design(frame Frame) *mat.Dense {
	n, p := frame.Len(), f.width()
	x := mat.NewDense(n, p, nil)
	regs := make([]float64, len(f.regressors))
	buf := make([]float64, p)
	for i, d := range frame.Dates {
		for j, r := range f.regressors {
			regs[j] = frame.Regressors[r.name][i]
		}
		f.row(buf, d, regs)
		x.SetRow(i, buf)
	}
	return x
}

// priorScales returns the prior standard deviation of every coefficient;
// zero means unpenalized.
func (f *additiveFit) priorScales() []float64 {
	scales := make([]float64, 0, f.width())
	scales = append(scales, 0, 0)
	for range f.changepoints {
		scales = append(scales, f.cfg.ChangepointPriorScale)
	}
	for _, s := range f.seasons {
		for k := 0; k < 2*s.Order; k++ {
			scales = append(scales, f.cfg.SeasonalityPriorScale)
		}
	}
	for range f.regressors {
		scales = append(scales, f.cfg.RegressorPriorScale)
	}
	return scales
}

// solve runs two ridge passes: the first assumes unit noise to estimate the
// residual variance, the second weights the priors by that variance.
func (f *additiveFit) solve(x *mat.Dense, y *mat.VecDense) error {
	n, p := x.Dims()

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	scales := f.priorScales()
	noise := 1.0
	for pass := 0; pass < 2; pass++ {
		a := mat.NewSymDense(p, nil)
		a.CopySym(&xtx)
		for j, s := range scales {
			penalty := jitter
			if s > 0 {
				penalty += noise / (s * s)
			}
			a.SetSym(j, j, a.At(j, j)+penalty)
		}

		if ok := f.chol.Factorize(a); !ok {
			return fmt.Errorf("%w: normal equations are not positive definite", ErrFitFailed)
		}
		beta := mat.NewVecDense(p, nil)
		if err := f.chol.SolveVecTo(beta, &xty); err != nil {
			return fmt.Errorf("%w: %v", ErrFitFailed, err)
		}
		f.beta = beta

		var fitted mat.VecDense
		fitted.MulVec(x, beta)
		var resid mat.VecDense
		resid.SubVec(y, &fitted)
		rss := mat.Dot(&resid, &resid)

		var hat mat.Dense
		if err := f.chol.SolveTo(&hat, &xtx); err != nil {
			return fmt.Errorf("%w: %v", ErrFitFailed, err)
		}
		dof := float64(n) - mat.Trace(&hat)
		if dof < 1 {
			dof = 1
		}
		f.sigma2 = rss / dof
		noise = math.Max(f.sigma2, minNoise)
	}
	return nil
}

func (f *additiveFit) Predict(future Frame) ([]models.ForecastRecord, error) {
	n := future.Len()
	for _, r := range f.regressors {
		values, ok := future.Regressors[r.name]
		if !ok || len(values) != n {
			return nil, fmt.Errorf("%w: %s", ErrMissingRegressor, r.name)
		}
	}

	p := f.width()
	buf := make([]float64, p)
	regs := make([]float64, len(f.regressors))
	xv := mat.NewVecDense(p, buf)
	var u mat.VecDense

	out := make([]models.ForecastRecord, n)
	for i, d := range future.Dates {
		for j, r := range f.regressors {
			regs[j] = future.Regressors[r.name][i]
		}
		f.row(buf, d, regs)

		yhat := mat.Dot(xv, f.beta)
		if err := f.chol.SolveVecTo(&u, xv); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFitFailed, err)
		}
		sd := math.Sqrt(f.sigma2 * (1 + mat.Dot(xv, &u)))

		out[i] = models.ForecastRecord{
			Date:      d,
			Predicted: yhat * f.yScale,
			Lower:     (yhat - f.z*sd) * f.yScale,
			Upper:     (yhat + f.z*sd) * f.yScale,
		}
	}
	return out, nil
}

func epochDays(t time.Time) float64 {
	return float64(t.Unix()) / secondsPerDay
}
