package prom

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/shiningsmiles/tuition-ledger/pkg/logger"
)

const (
	SystemPayments       = "payments"
	SystemReconciliation = "reconciliation"
)

const (
	MetricPaymentsCreated      = "created_total"
	MetricPaymentsPosted       = "posted_total"
	MetricPaymentsVoided       = "voided_total"
	MetricReceiptConflicts     = "receipt_conflicts_total"
	MetricReconciliationRecons = "submitted_total"
	MetricVariance             = "variance"
)

var createLock = &sync.Mutex{}
var namespace = "none"
var defaultLabels prometheus.Labels

var MetricSystemEnabled = false

var counters = make(map[string]prometheus.Counter)
var histograms = make(map[string]prometheus.Histogram)

// Create registers all metrics the ledger emits. Call once at startup.
func Create(host string, env string, nameSpace string) error {
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	namespace = nameSpace
	MetricSystemEnabled = true

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(createCounter(SystemPayments, MetricPaymentsCreated))
	hasError(createCounter(SystemPayments, MetricPaymentsPosted))
	hasError(createCounter(SystemPayments, MetricPaymentsVoided))
	hasError(createCounter(SystemPayments, MetricReceiptConflicts))
	hasError(createCounter(SystemReconciliation, MetricReconciliationRecons))
	hasError(createHistogram(SystemReconciliation, MetricVariance,
		[]float64{-100, -50, -10, -1, 0, 1, 10, 50, 100}))

	return err
}

func metricKey(system, name string) string {
	return fmt.Sprintf("%s_%s", system, name)
}

func createCounter(system, name string) error {
	createLock.Lock()
	defer createLock.Unlock()

	key := metricKey(system, name)
	if _, ok := counters[key]; ok {
		return nil
	}

	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   system,
		Name:        name,
		ConstLabels: defaultLabels,
	})
	if err := prometheus.Register(c); err != nil {
		return err
	}
	counters[key] = c
	return nil
}

func createHistogram(system, name string, buckets []float64) error {
	createLock.Lock()
	defer createLock.Unlock()

	key := metricKey(system, name)
	if _, ok := histograms[key]; ok {
		return nil
	}

	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   system,
		Name:        name,
		Buckets:     buckets,
		ConstLabels: defaultLabels,
	})
	if err := prometheus.Register(h); err != nil {
		return err
	}
	histograms[key] = h
	return nil
}

func IncCounter(system, name string) {
	if !MetricSystemEnabled {
		return
	}
	c, ok := counters[metricKey(system, name)]
	if !ok {
		logger.Warn("[prom] unknown counter", "system", system, "name", name)
		return
	}
	c.Inc()
}

func ObserveHistogram(system, name string, value float64) {
	if !MetricSystemEnabled {
		return
	}
	h, ok := histograms[metricKey(system, name)]
	if !ok {
		logger.Warn("[prom] unknown histogram", "system", system, "name", name)
		return
	}
	h.Observe(value)
}

// Handler exposes the prometheus registry as a fasthttp handler.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
