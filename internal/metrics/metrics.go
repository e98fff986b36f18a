// Package metrics implements Prometheus metrics.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/enipaddr/internal/inspect"
)

// Inspect holds the inspection metrics on a private registry, written out
// in the node_exporter textfile format after a run.
type Inspect struct {
	Registry *prometheus.Registry

	// FilesScanned counts capture files scanned
	FilesScanned prometheus.Counter

	// PacketsTotal counts packets read, by stage (read, matched)
	PacketsTotal *prometheus.CounterVec

	// MessagesTotal counts encapsulation messages decoded
	MessagesTotal prometheus.Counter

	// DecodeErrorsTotal counts undecodable messages and items
	DecodeErrorsTotal prometheus.Counter

	// WarningsSuppressedTotal counts invalid-item warnings dropped by rate limiting
	WarningsSuppressedTotal prometheus.Counter

	// EndpointsTotal counts socket addresses found, by carrying item and validity
	EndpointsTotal *prometheus.CounterVec
}

// NewInspect creates the inspection metrics on a fresh registry.
func NewInspect() *Inspect {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Inspect{
		Registry: reg,
		FilesScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "enipaddr_inspect_files_total",
			Help: "Total number of capture files scanned",
		}),
		PacketsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enipaddr_inspect_packets_total",
				Help: "Total number of packets read from captures",
			},
			[]string{"stage"},
		),
		MessagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "enipaddr_inspect_messages_total",
			Help: "Total number of encapsulation messages decoded",
		}),
		DecodeErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "enipaddr_inspect_decode_errors_total",
			Help: "Total number of undecodable encapsulation messages or items",
		}),
		WarningsSuppressedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "enipaddr_inspect_warnings_suppressed_total",
			Help: "Total number of invalid sockaddr warnings dropped by rate limiting",
		}),
		EndpointsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enipaddr_inspect_endpoints_total",
				Help: "Total number of socket addresses found",
			},
			[]string{"item", "valid", "multicast"},
		),
	}
}

// Observe adds a scan report to the metrics.
func (m *Inspect) Observe(r inspect.Report) {
	m.FilesScanned.Add(float64(len(r.Files)))
	m.PacketsTotal.WithLabelValues("read").Add(float64(r.Counters.Packets))
	m.PacketsTotal.WithLabelValues("matched").Add(float64(r.Counters.Matched))
	m.MessagesTotal.Add(float64(r.Counters.Messages))
	m.DecodeErrorsTotal.Add(float64(r.Counters.DecodeErrors))
	m.WarningsSuppressedTotal.Add(float64(r.Counters.Suppressed))
	for _, f := range r.Findings {
		m.EndpointsTotal.WithLabelValues(f.Item, strconv.FormatBool(f.Valid), strconv.FormatBool(f.Multicast)).Inc()
	}
}

// WriteTextfile writes the registry to path atomically.
func (m *Inspect) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
