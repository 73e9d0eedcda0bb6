package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Pairing metrics
	WaitingUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_waiting_users",
			Help: "Users waiting in the random pairing queue",
		},
	)

	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_matches_total",
			Help: "Rooms that became active",
		},
		[]string{"kind"}, // "random", "keyword" or "private"
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_active_rooms",
			Help: "Rooms currently active",
		},
	)

	RoomsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_rooms_closed_total",
			Help: "Active rooms closed",
		},
		[]string{"reason"}, // "left" or "disconnected"
	)

	MessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_messages_total",
			Help: "Chat messages stored and broadcast",
		},
	)

	// Transport metrics
	OnlineClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_online_clients",
			Help: "Connected clients across all transports",
		},
	)
)
