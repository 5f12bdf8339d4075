package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Contract calls
	// ============================================
	ContractCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_contract_calls_total",
			Help: "Total number of vesting contract calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	ContractCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vesting_contract_call_duration_seconds",
			Help:    "Vesting contract call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ClaimedAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_claimed_amount_total",
			Help: "Total amount of tokens claimed (float approximation of uint256)",
		},
		[]string{"token"},
	)

	DepositedAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_deposited_amount_total",
			Help: "Total amount of tokens deposited (float approximation of uint256)",
		},
		[]string{"token"},
	)

	AttestationsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_attestations_issued_total",
			Help: "Total number of authorization payloads signed by the attester",
		},
		[]string{"result"},
	)

	// ============================================
	// Event fanout
	// ============================================
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_events_emitted_total",
			Help: "Total number of committed vesting events",
		},
		[]string{"event_type"},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_event_handler_errors_total",
			Help: "Total number of event handler failures",
		},
		[]string{"handler", "event_type"},
	)

	// ============================================
	// NATS
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vesting_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"event_type"},
	)

	// ============================================
	// WebSocket
	// ============================================
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vesting_websocket_connections",
		Help: "Number of open event stream connections",
	})

	// ============================================
	// Database
	// ============================================
	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vesting_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})
)
