package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	submissionOutcomes  *prometheus.CounterVec
	compensationsTotal  *prometheus.CounterVec
	extractionFailures  *prometheus.CounterVec
	relevanceVerdicts   *prometheus.CounterVec
	feedbackGenerations *prometheus.CounterVec
	pipelineStepSeconds *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_submissions_total",
			Help: "Submission attempts by terminal outcome.",
		}, []string{"outcome"})

		compensationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_storage_compensations_total",
			Help: "Compensating deletes of uploaded files by result.",
		}, []string{"reason", "result"})

		extractionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_extraction_failures_total",
			Help: "Text extraction failures by detected format.",
		}, []string{"format"})

		relevanceVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_relevance_verdicts_total",
			Help: "Relevance gate verdicts.",
		}, []string{"verdict"})

		feedbackGenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_feedback_generations_total",
			Help: "AI feedback generation attempts by result.",
		}, []string{"result"})

		pipelineStepSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_pipeline_step_seconds",
			Help:    "Duration of submission pipeline steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionOutcomes,
			compensationsTotal,
			extractionFailures,
			relevanceVerdicts,
			feedbackGenerations,
			pipelineStepSeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SubmissionOutcomes counts submissions by persisted, rejected, failed or invalid.
func SubmissionOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionOutcomes
}

// Compensations counts compensating deletes.
func Compensations() *prometheus.CounterVec {
	RegisterMetrics()
	return compensationsTotal
}

// ExtractionFailures counts extraction errors.
func ExtractionFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return extractionFailures
}

// RelevanceVerdicts counts gate decisions.
func RelevanceVerdicts() *prometheus.CounterVec {
	RegisterMetrics()
	return relevanceVerdicts
}

// FeedbackGenerations counts on-demand feedback runs.
func FeedbackGenerations() *prometheus.CounterVec {
	RegisterMetrics()
	return feedbackGenerations
}

// PipelineStepDuration exposes the per-step duration histogram.
func PipelineStepDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return pipelineStepSeconds
}
