package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_quotes_total",
		Help: "The total number of quotes by pricing mode and outcome",
	}, []string{"mode", "outcome"})

	QuoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_quote_seconds",
		Help:    "Time taken to compute a quote",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms with 10 buckets doubling in size
	}, []string{"mode"})

	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_intents_total",
		Help: "The total number of payment intents by status transition",
	}, []string{"status"})

	ActiveSagas = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_active_sagas",
		Help: "The number of sagas currently executing",
	})

	StageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_stage_outcomes_total",
		Help: "Total number of stage completions and failures",
	}, []string{"stage", "status"})

	StageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_stage_fallbacks_total",
		Help: "Total number of stages completed through a fallback path",
	}, []string{"stage", "fallback"})

	SagaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_saga_seconds",
		Help:    "Time taken to run a payment saga",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	}, []string{"status"})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_deliveries_total",
		Help: "Total number of webhook delivery attempts by outcome",
	}, []string{"outcome"})

	GasPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_gas_price_gwei",
		Help: "Current gas price in gwei",
	}, []string{"chain_id"})

	GasUsed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_gas_used",
		Help:    "Gas used by gateway transactions",
		Buckets: prometheus.ExponentialBuckets(21000, 2, 10), // Start at 21000 with 10 buckets doubling in size
	}, []string{"chain_id", "operation"})

	ChainErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_chain_errors_total",
		Help: "Total number of chain read and write errors by operation",
	}, []string{"chain_id", "kind", "operation"})

	OperatorBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_operator_balance",
		Help: "Last observed operator wallet balance in token units",
	}, []string{"chain_id", "token"})

	MirrorWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_mirror_writes_total",
		Help: "Total number of transaction mirror writes by outcome",
	}, []string{"outcome"})
)
