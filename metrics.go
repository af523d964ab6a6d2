package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/toncenter/ton-indexer/ton-tracing-go/index"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ton_tracing_requests_total",
		Help: "Trace requests by result.",
	}, []string{"result"})
	buildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ton_tracing_build_seconds",
		Help:    "Time to fetch and build a trace.",
		Buckets: prometheus.DefBuckets,
	})
	traceNodes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ton_tracing_nodes",
		Help:    "Number of nodes in built traces.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, buildSeconds, traceNodes)
}

func observeTrace(result string, elapsed time.Duration, nodes int) {
	requestsTotal.WithLabelValues(result).Inc()
	buildSeconds.Observe(elapsed.Seconds())
	if nodes > 0 {
		traceNodes.Observe(float64(nodes))
	}
}

// resultLabel is the HTTP status of a failed request, "error" for unexpected
// errors.
func resultLabel(err error) string {
	var ierr index.IndexError
	if errors.As(err, &ierr) {
		return strconv.Itoa(ierr.Code)
	}
	return "error"
}

// registerAbiCacheMetrics exports the share of ABI lookups served from the
// contracts cache.
func registerAbiCacheMetrics(reg prometheus.Registerer, hitRate func() float64) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ton_tracing_abi_cache_hit_ratio",
		Help: "Share of ABI lookups served from the cache.",
	}, hitRate))
}

func MetricsHandler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
