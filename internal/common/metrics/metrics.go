// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AgentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_requests_total",
			Help: "Total number of agent requests by terminal state",
		},
		[]string{"terminal_state"},
	)

	PolicyVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "policy_verdicts_total",
			Help: "Total number of non-ALLOW policy verdicts",
		},
		[]string{"verdict", "policy"},
	)

	QueryGateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_gate_rejections_total",
			Help: "Total number of generated queries rejected by the query gate",
		},
		[]string{"collection", "error_code"},
	)

	ToolValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_validations_total",
			Help: "Total number of tool call validations by outcome",
		},
		[]string{"tool", "outcome"},
	)

	ToolDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_dispatches_total",
			Help: "Total number of confirmed tool calls handed to collaborators",
		},
		[]string{"tool", "service", "outcome"},
	)

	QueryExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_execution_duration_seconds",
			Help:    "Duration of sanitized query execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)
)
