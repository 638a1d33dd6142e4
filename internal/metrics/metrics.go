package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds pipeline step metrics on a private registry. A nil Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	stepDuration *prometheus.HistogramVec
	stepErrors   *prometheus.CounterVec
	runs         *prometheus.CounterVec
	swapped      *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "supplier",
			Name:      "step_duration_seconds",
			Help:      "Pipeline step duration including confirmation wait",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"step"}),
		stepErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supplier",
			Name:      "step_errors_total",
			Help:      "Pipeline step failures",
		}, []string{"step"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supplier",
			Name:      "runs_total",
			Help:      "Finished pipeline runs by outcome",
		}, []string{"outcome"}),
		swapped: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "supplier",
			Name:      "swapped_amount",
			Help:      "Output token received by the last swap, in whole units",
		}, []string{"token"}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStep records the duration of a step and counts it as failed when err is non-nil.
func (r *Recorder) ObserveStep(step string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.stepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
	if err != nil {
		r.stepErrors.WithLabelValues(step).Inc()
	}
}

func (r *Recorder) RunOutcome(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SetSwapped(token string, amount float64) {
	if r == nil {
		return
	}
	r.swapped.WithLabelValues(token).Set(amount)
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
