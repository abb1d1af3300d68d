package broadcaster

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "doggy_deployer"

type Metricer interface {
	RecordNonce(nonce uint64)
	TxPublished(kind string)
	TxConfirmed(receipt *types.Receipt)
	RPCError()
}

type NoopMetrics struct{}

var _ Metricer = NoopMetrics{}

func (NoopMetrics) RecordNonce(uint64)         {}
func (NoopMetrics) TxPublished(string)         {}
func (NoopMetrics) TxConfirmed(*types.Receipt) {}
func (NoopMetrics) RPCError()                  {}

// Metrics records broadcaster activity on its own prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	currentNonce prometheus.Gauge
	txPublished  *prometheus.CounterVec
	txConfirmed  *prometheus.CounterVec
	gasUsed      prometheus.Counter
	rpcErrors    prometheus.Counter
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		currentNonce: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "current_nonce",
			Help:      "Current nonce of the deployer account",
		}),
		txPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tx_published_total",
			Help:      "Count of transactions published, by kind",
		}, []string{"kind"}),
		txConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tx_confirmed_total",
			Help:      "Count of transactions confirmed, by receipt status",
		}, []string{"status"}),
		gasUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "gas_used_total",
			Help:      "Gas used by confirmed transactions",
		}),
		rpcErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rpc_errors_total",
			Help:      "Count of failed RPC calls",
		}),
	}
	registry.MustRegister(m.currentNonce, m.txPublished, m.txConfirmed, m.gasUsed, m.rpcErrors)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordNonce(nonce uint64) {
	m.currentNonce.Set(float64(nonce))
}

func (m *Metrics) TxPublished(kind string) {
	m.txPublished.WithLabelValues(kind).Inc()
}

func (m *Metrics) TxConfirmed(receipt *types.Receipt) {
	status := "success"
	if receipt.Status != types.ReceiptStatusSuccessful {
		status = "reverted"
	}
	m.txConfirmed.WithLabelValues(status).Inc()
	m.gasUsed.Add(float64(receipt.GasUsed))
}

func (m *Metrics) RPCError() {
	m.rpcErrors.Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
