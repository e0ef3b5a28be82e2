package bagel

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bagel",
		Name:      "messages_sent_total",
		Help:      "Messages handed to the transport.",
	}, []string{"partition"})

	epochGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bagel",
		Name:      "epoch",
		Help:      "Last epoch completed by a partition.",
	}, []string{"algorithm", "partition"})

	frontierGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bagel",
		Name:      "frontier_size",
		Help:      "Entries in the merged SSSP frontier.",
	}, []string{"partition"})

	activeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bagel",
		Name:      "active_vertices",
		Help:      "Vertices active across the cluster at the start of an APSP epoch.",
	}, []string{"partition"})
)

func partitionLabel(t Transport) string {
	if t == nil {
		return ""
	}
	return strconv.Itoa(t.PartitionId())
}
