package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService 业务指标采集
type MetricsService struct {
	registry *prometheus.Registry

	documentsIngested prometheus.Counter
	chunksIngested    prometheus.Counter
	searches          *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	ingestDuration    prometheus.Histogram
}

// NewMetricsService 创建指标服务并注册所有collector
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		documentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_documents_ingested_total",
			Help: "Number of documents successfully ingested.",
		}),
		chunksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_chunks_ingested_total",
			Help: "Number of chunks embedded and persisted.",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_searches_total",
			Help: "Number of similarity searches, by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchestrator_search_duration_seconds",
			Help:    "Similarity search latency including query embedding.",
			Buckets: prometheus.DefBuckets,
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchestrator_ingest_duration_seconds",
			Help:    "Document ingestion latency including embedding and persist.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	registry.MustRegister(s.documentsIngested, s.chunksIngested, s.searches, s.searchDuration, s.ingestDuration)
	return s
}

// ObserveIngest 记录一次成功入库
func (s *MetricsService) ObserveIngest(chunks int, seconds float64) {
	s.documentsIngested.Inc()
	s.chunksIngested.Add(float64(chunks))
	s.ingestDuration.Observe(seconds)
}

// ObserveSearch 记录一次检索
func (s *MetricsService) ObserveSearch(outcome string, seconds float64) {
	s.searches.WithLabelValues(outcome).Inc()
	s.searchDuration.Observe(seconds)
}

// Handler 暴露/metrics端点
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
