package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pushbridge_webhook_events_total",
		Help: "Inbound change events by table and processing status.",
	}, []string{"table", "status"})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pushbridge_deliveries_total",
		Help: "Push delivery attempts by outcome reason.",
	}, []string{"reason"})
)
