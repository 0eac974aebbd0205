package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfworkbench",
			Name:      "documents_ingested_total",
			Help:      "Documents ingested by result (ok, degraded, rejected, duplicate)",
		},
		[]string{"result"},
	)

	batchOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfworkbench",
			Name:      "batch_operations_total",
			Help:      "Extract/merge batch operations by kind and result",
		},
		[]string{"kind", "result"},
	)

	staleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfworkbench",
			Name:      "stale_batch_results_total",
			Help:      "Batch results discarded because the workspace revision moved on",
		},
	)

	renderLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdfworkbench",
			Name:      "page_render_duration_seconds",
			Help:      "Duration of single-page JPEG rendering",
			Buckets:   prometheus.DefBuckets,
		},
	)

	workspaceDocs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdfworkbench",
			Name:      "workspace_documents",
			Help:      "Number of documents currently in the workspace",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(documentsIngested, batchOps, staleResults, renderLatency, workspaceDocs)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncIngested(result string)       { documentsIngested.WithLabelValues(result).Inc() }
func IncBatch(kind, result string)    { batchOps.WithLabelValues(kind, result).Inc() }
func IncStaleResult()                 { staleResults.Inc() }
func ObserveRender(dur time.Duration) { renderLatency.Observe(dur.Seconds()) }
func SetWorkspaceDocuments(n int)     { workspaceDocs.Set(float64(n)) }
