package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "ws_connections",
		Help:      "Open ticket chat sockets.",
	})

	wsRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "ws_rooms",
		Help:      "Ticket rooms with at least one socket.",
	})

	wsFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "ws_frames_sent_total",
			Help:      "Frames queued to sockets, by event.",
		},
		[]string{"event"},
	)

	wsFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "ws_frames_dropped_total",
		Help:      "Frames dropped because a socket's send buffer was full.",
	})
)
