package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records maintenance job runs and the rows they removed.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of maintenance jobs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Maintenance job runs by result.",
	}, []string{"job", "result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_rows_deleted_total",
		Help: "Rows removed by maintenance jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, rows)
	return &CronJobMetrics{duration: duration, runs: runs, rows: rows}
}

// Observe records one finished run. A nil err counts as a success.
func (m *CronJobMetrics) Observe(job string, elapsed time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(elapsed.Seconds())
	m.runs.WithLabelValues(normalizeLabel(job), result).Inc()
}

func (m *CronJobMetrics) RowsDeleted(job string, n int64) {
	if m == nil || m.rows == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
