package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics records dispatches against the image model.
type GenerationMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	output   *prometheus.CounterVec
}

// NewGenerationMetrics registers the generation metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_duration_seconds",
		Help:    "Duration of image generation dispatches in seconds.",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"purpose"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_success",
		Help: "Successful image generation dispatches.",
	}, []string{"purpose"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_failure",
		Help: "Failed image generation dispatches.",
	}, []string{"purpose"})
	output := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_output_format",
		Help: "Output formats returned by the image model.",
	}, []string{"format"})
	reg.MustRegister(duration, success, failure, output)
	return &GenerationMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		output:   output,
	}
}

// ObserveDuration records the dispatch duration for the given purpose.
func (g *GenerationMetrics) ObserveDuration(purpose string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(purpose)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the given purpose.
func (g *GenerationMetrics) IncSuccess(purpose string) {
	if g == nil || g.success == nil {
		return
	}
	g.success.WithLabelValues(normalizeLabel(purpose)).Inc()
}

// IncFailure increments the failure counter for the given purpose.
func (g *GenerationMetrics) IncFailure(purpose string) {
	if g == nil || g.failure == nil {
		return
	}
	g.failure.WithLabelValues(normalizeLabel(purpose)).Inc()
}

// IncOutputFormat counts the output shape the model returned.
func (g *GenerationMetrics) IncOutputFormat(format string) {
	if g == nil || g.output == nil {
		return
	}
	g.output.WithLabelValues(normalizeLabel(format)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
