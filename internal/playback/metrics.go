package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibealong_playback_sessions_active",
		Help: "Number of open playback sessions.",
	})

	sessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibealong_playback_sessions_started_total",
			Help: "Total number of scenario runs started, by scenario.",
		},
		[]string{"scenario"},
	)

	messagesRevealedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibealong_playback_messages_revealed_total",
			Help: "Total number of messages revealed, by scenario and sender.",
		},
		[]string{"scenario", "sender"},
	)

	advancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibealong_playback_advances_total",
			Help: "Total number of manual advance triggers, by result.",
		},
		[]string{"result"},
	)

	resetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibealong_playback_resets_total",
		Help: "Total number of playback resets.",
	})

	completedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibealong_playback_completed_total",
			Help: "Total number of scenario runs that revealed every message, by scenario.",
		},
		[]string{"scenario"},
	)

	sessionsReapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibealong_playback_sessions_reaped_total",
		Help: "Total number of idle playback sessions closed by the janitor.",
	})
)
