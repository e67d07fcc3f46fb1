package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ProcessingMetrics struct {
	sourceHeightGauge    prometheus.Gauge
	cursorHeightGauge    prometheus.Gauge
	processedHeightGauge prometheus.Gauge
	emittedRangesCount   prometheus.Counter
	completedRangesCount prometheus.Counter
	fetchedEventsCount   *prometheus.CounterVec
	fetchFailuresCount   *prometheus.CounterVec
	handlerFailuresCount *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	sourceFailuresCount  prometheus.Counter
}

func NewProcessingMetrics(namespace string, registerer prometheus.Registerer) *ProcessingMetrics {
	factory := promauto.With(registerer)
	m := ProcessingMetrics{
		// metrics for comparison to event source
		sourceHeightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_source_height", namespace),
			Help: "The latest known sealed block height",
		}),
		sourceFailuresCount: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_source_failure_count", namespace),
			Help: "The total number of failed latest height queries",
		}),
		// metrics for range tracking
		cursorHeightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_cursor_height", namespace),
			Help: "The height up to which ranges have been emitted",
		}),
		processedHeightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_processed_height", namespace),
			Help: "The latest height fully processed by all workers",
		}),
		emittedRangesCount: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_emitted_range_count", namespace),
			Help: "The total number of emitted block ranges",
		}),
		completedRangesCount: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_completed_range_count", namespace),
			Help: "The total number of block ranges completed by all workers",
		}),
		// per event type
		fetchedEventsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_fetched_event_count", namespace),
			Help: "The total number of decoded events",
		}, []string{"event"}),
		fetchFailuresCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_fetch_failure_count", namespace),
			Help: "The total number of failed event fetches",
		}, []string{"event"}),
		handlerFailuresCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_handler_failure_count", namespace),
			Help: "The total number of failed handler invocations",
		}, []string{"event"}),
		fetchDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_fetch_duration_seconds", namespace),
			Help:    "Duration of event fetches per block range",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
	}
	return &m
}

func (metrics *ProcessingMetrics) SetSourceHeight(height uint64) {
	metrics.sourceHeightGauge.Set(float64(height))
}

func (metrics *ProcessingMetrics) IncSourceFailures() {
	metrics.sourceFailuresCount.Inc()
}

func (metrics *ProcessingMetrics) SetCursorHeight(height uint64) {
	metrics.cursorHeightGauge.Set(float64(height))
}

func (metrics *ProcessingMetrics) IncEmittedRanges() {
	metrics.emittedRangesCount.Inc()
}

func (metrics *ProcessingMetrics) SetProcessedHeight(height uint64) {
	metrics.processedHeightGauge.Set(float64(height))
}

func (metrics *ProcessingMetrics) IncCompletedRanges() {
	metrics.completedRangesCount.Inc()
}

func (metrics *ProcessingMetrics) AddFetchedEvents(eventType string, count int) {
	metrics.fetchedEventsCount.WithLabelValues(eventType).Add(float64(count))
}

func (metrics *ProcessingMetrics) IncFetchFailures(eventType string) {
	metrics.fetchFailuresCount.WithLabelValues(eventType).Inc()
}

func (metrics *ProcessingMetrics) IncHandlerFailures(eventType string) {
	metrics.handlerFailuresCount.WithLabelValues(eventType).Inc()
}

func (metrics *ProcessingMetrics) ObserveFetchDuration(eventType string, seconds float64) {
	metrics.fetchDurationSeconds.WithLabelValues(eventType).Observe(seconds)
}
