package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibealong_http_requests_total",
			Help: "Total number of HTTP requests, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibealong_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter, by route.",
		},
		[]string{"route"},
	)

	signupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibealong_signups_total",
			Help: "Total number of signup submissions, by result.",
		},
		[]string{"result"},
	)

	streamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibealong_stream_connections_active",
		Help: "Number of open websocket session streams.",
	})
)
