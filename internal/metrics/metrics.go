package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccountConnected reports the connection state per account.
	AccountConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ircbridge_account_connected",
			Help: "Whether the account's IRC connection is registered (1) or not (0)",
		}, []string{"account"},
	)

	// MessagesSent counts logical outbound sends per account and kind.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircbridge_messages_sent_total",
			Help: "Logical outbound messages sent per account and kind",
		}, []string{"account", "kind"},
	)

	// ChunksSent counts protocol-level sends after chunking.
	ChunksSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircbridge_chunks_sent_total",
			Help: "Protocol messages emitted by the delivery pipeline per account",
		}, []string{"account"},
	)

	// SendFailures counts failed deliveries by reason.
	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircbridge_send_failures_total",
			Help: "Failed deliveries by reason",
		}, []string{"account", "reason"},
	)

	// InboundMessages counts dispatched inbound messages by kind.
	InboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircbridge_inbound_messages_total",
			Help: "Inbound messages dispatched to the platform, by kind (dm or channel)",
		}, []string{"account", "kind"},
	)

	// ProbeResults counts connectivity probes by outcome.
	ProbeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircbridge_probe_results_total",
			Help: "Connectivity probe outcomes (ok, timeout, error)",
		}, []string{"outcome"},
	)
)
