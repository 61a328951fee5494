package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CapturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgw_captures_total",
			Help: "Lead capture outcomes",
		},
		[]string{"result"}, // created|merged|rejected|error
	)

	WebhookDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgw_webhook_dispatch_total",
			Help: "Outbound webhook dispatch outcomes by phase",
		},
		[]string{"phase", "outcome"}, // enqueue|challenge|delivery , ok|failed|dropped|skipped
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		CapturesTotal,
		WebhookDispatchTotal,
	)
}
