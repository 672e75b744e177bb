// ABOUTME: Prometheus counters for MCP requests and tool calls.
// ABOUTME: A nil *Metrics disables observation without nil checks at call sites.

package mcp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts JSON-RPC requests by method and tool calls by outcome.
type Metrics struct {
	requests  *prometheus.CounterVec
	toolCalls *prometheus.CounterVec
}

// NewMetrics creates and registers the MCP counters on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todomcp_requests_total",
			Help: "JSON-RPC requests received, by method.",
		}, []string{"method"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todomcp_tool_calls_total",
			Help: "Tool calls executed, by tool name and outcome.",
		}, []string{"tool", "status"}),
	}
}

// ObserveRequest records one JSON-RPC request.
func (m *Metrics) ObserveRequest(method string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method).Inc()
}

// ObserveToolCall records one tool call outcome.
func (m *Metrics) ObserveToolCall(tool string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}
