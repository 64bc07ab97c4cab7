package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WindowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "launchscope_windows_total", Help: "Block windows processed"},
		[]string{"loop", "status"},
	)
	BlocksFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "launchscope_blocks_fetched_total", Help: "Blocks fetched from the RPC node"},
		[]string{"loop"},
	)
	BlocksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "launchscope_blocks_processed_total", Help: "Queued blocks scanned for mint logs"},
	)
	RecordsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "launchscope_records_extracted_total", Help: "Launch records extracted"},
		[]string{"extractor"},
	)
	MalformedTransactions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "launchscope_malformed_transactions_total", Help: "Transactions skipped because their logs could not be paired"},
	)
	RPCErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "launchscope_rpc_errors_total", Help: "Failed RPC calls"},
		[]string{"method"},
	)
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "launchscope_queue_depth", Help: "Blocks waiting in the log processing queue"},
	)
	SyncedBlock = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "launchscope_synced_block", Help: "Last persisted block per cursor"},
		[]string{"cursor"},
	)
)

func init() {
	prometheus.MustRegister(
		WindowsProcessed,
		BlocksFetched,
		BlocksProcessed,
		RecordsExtracted,
		MalformedTransactions,
		RPCErrors,
		QueueDepth,
		SyncedBlock,
	)
}
