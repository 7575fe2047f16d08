package forkchoice

import "github.com/prometheus/client_golang/prometheus"

// Latency histograms for the three exported operations, plus a handful of
// gauges and counters tracking checkpoint state, queue depth, and pruning.
var (
	findHeadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "forkchoice_find_head_milliseconds",
		Help: "Latency of FindHead calls in milliseconds.",
	})
	onBlockLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "forkchoice_on_block_milliseconds",
		Help: "Latency of OnBlock calls in milliseconds.",
	})
	onAttestationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "forkchoice_on_attestation_milliseconds",
		Help: "Latency of OnAttestation calls in milliseconds.",
	})
	queuedAttestationsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forkchoice_queued_attestations",
		Help: "Number of attestations currently queued for a future slot.",
	})
	justifiedEpochGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forkchoice_justified_epoch",
		Help: "Current justified epoch.",
	})
	finalizedEpochGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forkchoice_finalized_epoch",
		Help: "Current finalized epoch.",
	})
	prunedNodesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forkchoice_pruned_nodes_total",
		Help: "Number of proto-array nodes removed by pruning.",
	})
)

func init() {
	prometheus.MustRegister(
		findHeadLatency,
		onBlockLatency,
		onAttestationLatency,
		queuedAttestationsGauge,
		justifiedEpochGauge,
		finalizedEpochGauge,
		prunedNodesCounter,
	)
}
