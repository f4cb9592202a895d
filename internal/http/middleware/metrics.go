// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus collectors and the Metrics middleware.
// Labels stay bounded: routes are reported by their registered template
// (/api/v1/vote/cast/:public_id, never the concrete public id) and
// unmatched requests share one label. Handlers may tag a request with a
// voting event (a selection outcome or a decision) which is counted once
// the response succeeds.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const ctxKeyVotingEvent = "metrics.voting_event"

// Voting events recorded by handlers.
const (
	EventSelected       = "selected"
	EventExhausted      = "exhausted"
	EventSkipsReclaimed = "skips_reclaimed"
	EventVote           = "vote"
	EventSkip           = "skip"
	EventSkipsCleared   = "skips_cleared"
	EventConductReport  = "conduct_report"
)

// 200B .. 1MiB; vote pages are small JSON documents.
var respSizeBuckets = prometheus.ExponentialBuckets(200, 2.5, 10)

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_inflight",
		Help: "HTTP requests currently being served.",
	})

	httpRateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_rate_limited_total",
		Help: "Requests rejected with 429 by route.",
	}, []string{"path"})

	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_response_size_bytes",
		Help:    "HTTP response body size by method and route.",
		Buckets: respSizeBuckets,
	}, []string{"method", "path"})

	votingEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cfp_voting_events_total",
		Help: "Successful voting operations by event.",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, httpRateLimited, votingEvents)
}

// RecordVotingEvent tags the request with event. Metrics counts it after the
// handler returns, and only when the response status is below 400.
func RecordVotingEvent(c *gin.Context, event string) {
	c.Set(ctxKeyVotingEvent, event)
}

// Metrics instruments every request:
//
//	http_requests_total{method,path,status}
//	http_request_duration_seconds{method,path}
//	http_response_size_bytes{method,path}   (skipped when the size is unknown)
//	http_requests_inflight
//	cfp_voting_events_total{event}          (when a handler recorded one)
//
// Mount /metrics with gin.WrapH(promhttp.Handler()) after it.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInflight.Inc()
		defer httpInflight.Dec()
		start := time.Now()

		c.Next()

		path, method, status := routeLabel(c), c.Request.Method, c.Writer.Status()

		httpReqs.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
		if ev, ok := c.Get(ctxKeyVotingEvent); ok && status < 400 {
			if s, _ := ev.(string); s != "" {
				votingEvents.WithLabelValues(s).Inc()
			}
		}
	}
}

// routeLabel returns the matched route template or "unmatched".
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
