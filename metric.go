package walletcore

import (
	"github.com/prometheus/client_golang/prometheus"
)

const MetricNameSpace = "walletcore"

var (
	metricSyncs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "account_syncs_total",
			Help:      "completed account sync pipelines",
		},
	)
	metricTransfers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "transfers_total",
			Help:      "broadcast token transfers",
		},
	)
	metricRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "signing_requests_total",
			Help:      "resolved signing requests",
		},
	)
)

func init() {
	prometheus.MustRegister(
		metricSyncs,
		metricTransfers,
		metricRequests,
	)
}
