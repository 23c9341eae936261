/*
Package metrics exposes the progress of tree builds as prometheus
collectors.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

/*
Collector groups the collectors updated while a tree is grown. A nil
*Collector is valid and records nothing.
*/
type Collector struct {
	rounds           prometheus.Counter
	splits           prometheus.Counter
	leaves           prometheus.Counter
	subtrees         prometheus.Counter
	nodes            prometheus.Gauge
	activeInstances  prometheus.Gauge
	settledInstances prometheus.Gauge
	phaseDuration    *prometheus.HistogramVec
}

/*
New takes a prometheus.Registerer and returns a Collector whose
collectors have been registered on it, or an error if registration
fails.
*/
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hadooptree",
			Name:      "rounds_total",
			Help:      "Growth rounds completed.",
		}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hadooptree",
			Name:      "splits_applied_total",
			Help:      "Splits applied to frontier nodes by distributed selection.",
		}),
		leaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hadooptree",
			Name:      "leaves_declared_total",
			Help:      "Frontier nodes declared leaves by distributed selection.",
		}),
		subtrees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hadooptree",
			Name:      "subtrees_grafted_total",
			Help:      "Locally grown subtrees grafted onto the tree.",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hadooptree",
			Name:      "nodes",
			Help:      "Nodes in the tree being grown.",
		}),
		activeInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hadooptree",
			Name:      "active_instances",
			Help:      "Training instances still taking part in growth.",
		}),
		settledInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hadooptree",
			Name:      "settled_instances",
			Help:      "Instances on declared leaves and below-floor frontier nodes waiting for a subtree phase to filter them out.",
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hadooptree",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each phase of a growth round.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"phase"}),
	}
	for _, col := range []prometheus.Collector{c.rounds, c.splits, c.leaves, c.subtrees, c.nodes, c.activeInstances, c.settledInstances, c.phaseDuration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RoundDone records the outcome of a growth round
func (c *Collector) RoundDone(splits, leaves, nodes int) {
	if c == nil {
		return
	}
	c.rounds.Inc()
	c.splits.Add(float64(splits))
	c.leaves.Add(float64(leaves))
	c.nodes.Set(float64(nodes))
}

// SubtreesGrafted records the grafting of locally grown subtrees
func (c *Collector) SubtreesGrafted(n int) {
	if c == nil {
		return
	}
	c.subtrees.Add(float64(n))
}

// Instances records the active and settled instance counts
func (c *Collector) Instances(active, settled int64) {
	if c == nil {
		return
	}
	c.activeInstances.Set(float64(active))
	c.settledInstances.Set(float64(settled))
}

// ObservePhase records how long a phase took since the given start
func (c *Collector) ObservePhase(phase string, start time.Time) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
