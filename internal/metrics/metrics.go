package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"underwriting-bot/internal/domain/entity"
)

const namespace = "underwriting"

// Исходы загрузки файла
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Metrics коллекторы сервиса. Нулевой *Metrics допустим и ничего не пишет.
type Metrics struct {
	assessments *prometheus.CounterVec
	uploads     *prometheus.CounterVec
	fields      *prometheus.CounterVec
	stages      *prometheus.HistogramVec
}

// New регистрирует коллекторы в reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Risk assessments by category.",
		}, []string{"category"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploaded inputs by kind and outcome.",
		}, []string{"input", "outcome"}),
		fields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_extracted_total",
			Help:      "Report fields found in extracted text.",
		}, []string{"field"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of text extraction and image classification.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	reg.MustRegister(m.assessments, m.uploads, m.fields, m.stages)
	return m
}

// Handler отдаёт /metrics для заданного реестра
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAssessment(category entity.RiskCategory) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(string(category)).Inc()
}

func (m *Metrics) ObserveUpload(input entity.Input, outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(string(input), outcome).Inc()
}

func (m *Metrics) ObserveFields(fields entity.ExtractedFields) {
	if m == nil {
		return
	}
	for name := range fields {
		m.fields.WithLabelValues(string(name)).Inc()
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}
