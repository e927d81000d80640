package metrics

import (
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	JobGenerate = "hcda_generate"
	JobForecast = "hcda_forecast"
)

// Push sends the hcda collectors to a Pushgateway under job.
func Push(url, job string) error {
	return push.New(url, job).
		Collector(ForecastRuns).
		Collector(FitDuration).
		Collector(AlertDecisions).
		Collector(NotifyFailures).
		Collector(RecordsGenerated).
		Push()
}
