/*
Package hadooptree grows classification trees over datasets too large to
be processed in one place.

Trees are grown in rounds. Every round selects, in parallel over the
sharded dataset, the best split for each frontier node large enough, and
applies them all at once. Nodes that fall below the subtree floor wait
until their instances amount to a large enough share of the active ones,
and then get their whole subtrees grown locally and grafted in a single
phase, after which the instances that can no longer affect growth are
filtered out of the active dataset.
*/
package hadooptree

import (
	"context"
	"fmt"
	"time"

	"github.com/ashenfad/hadooptree/config"
	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/ashenfad/hadooptree/metrics"
	"github.com/ashenfad/hadooptree/nodesplit"
	"github.com/ashenfad/hadooptree/subtree"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/ashenfad/hadooptree/tree/json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Grower holds everything needed to grow trees: the knobs that tune
// growth, the runner executing its jobs, the store where snapshots of
// the tree are published after every change, the storage where filtered
// datasets are written, a logger and optional metrics.
type Grower struct {
	Config  config.Config
	Runner  *mapreduce.Runner
	Store   tree.Store
	Storage dataset.Storage
	Logger  logrus.FieldLogger
	Metrics *metrics.Collector
	// RunID prefixes the names of the intermediate datasets of a build.
	// A random one is used if empty.
	RunID string
}

// Result describes a finished build
type Result struct {
	Tree     *tree.Tree
	Rounds   int
	Splits   int
	Leaves   int
	Subtrees int
}

// state holds the instance counters carried from round to round. Settled
// instances sit on nodes distributed selection will not visit again:
// declared leaves and frontier nodes below the subtree floor. They leave
// the active count once a subtree phase filters them out.
type state struct {
	input        dataset.Dataset
	intermediate string
	active       int64
	settled      int64
}

// Grow takes a context, a dataset and the index of the field to predict,
// collects the statistics of the fields of the dataset and grows a tree
// on it.
func (g *Grower) Grow(ctx context.Context, ds dataset.Dataset, objective int) (*Result, error) {
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	g.setup()
	start := time.Now()
	fields, err := CollectFields(ctx, g.Runner, ds)
	if err != nil {
		return nil, errors.Wrap(err, "collecting field statistics")
	}
	g.Metrics.ObservePhase("fields", start)
	return g.GrowFromFields(ctx, ds, fields, objective)
}

// GrowFromFields takes a context, a dataset, the statistics of its
// fields and the index of the field to predict and grows a tree on the
// dataset, running rounds until one applies no split. The tree is
// published on the store after every change.
func (g *Grower) GrowFromFields(ctx context.Context, ds dataset.Dataset, fields []*feature.Field, objective int) (*Result, error) {
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	g.setup()
	log := g.logger().WithField("run", g.RunID)
	t, err := tree.New(fields, objective)
	if err != nil {
		return nil, err
	}
	if err = g.Store.Publish(ctx, t); err != nil {
		return nil, err
	}
	res := &Result{Tree: t}
	st := &state{input: ds, active: t.Root().Total()}
	if t.Root().Total() < g.Config.SubtreeFloor {
		st.settled = t.Root().Total()
	}
	log.WithFields(logrus.Fields{"instances": st.active, "fields": len(fields), "objective": objective}).Info("growing tree")
	for {
		res.Rounds++
		rlog := log.WithField("round", res.Rounds)
		if st.settled > 0 && (st.active <= 0 || float64(st.settled)/float64(st.active) > g.Config.LeafSubtreeRatio) {
			n, err := g.growSubtrees(ctx, t, st, res.Rounds, true)
			if err != nil {
				return nil, errors.Wrapf(err, "round %d: growing subtrees", res.Rounds)
			}
			res.Subtrees += n
			st.active -= st.settled
			st.settled = 0
			rlog.WithFields(logrus.Fields{"subtrees": n, "active": st.active, "nodes": t.Len()}).Info("grafted subtrees")
		}
		splits, leaves, err := g.selectSplits(ctx, t, st)
		if err != nil {
			return nil, errors.Wrapf(err, "round %d: selecting splits", res.Rounds)
		}
		res.Splits += splits
		res.Leaves += leaves
		g.Metrics.RoundDone(splits, leaves, t.Len())
		g.Metrics.Instances(st.active, st.settled)
		rlog.WithFields(logrus.Fields{
			"splits":  splits,
			"leaves":  leaves,
			"nodes":   t.Len(),
			"active":  st.active,
			"settled": st.settled,
		}).Info("round done")
		if splits == 0 {
			break
		}
	}
	if g.belowFloor(t) {
		n, err := g.growSubtrees(ctx, t, st, res.Rounds, false)
		if err != nil {
			return nil, errors.Wrap(err, "growing remaining subtrees")
		}
		res.Subtrees += n
		st.settled = 0
		log.WithFields(logrus.Fields{"subtrees": n, "nodes": t.Len()}).Info("grafted remaining subtrees")
	}
	if st.intermediate != "" {
		if err = g.Storage.Remove(ctx, st.intermediate); err != nil {
			log.WithError(err).Warn("removing intermediate dataset")
		}
	}
	log.WithFields(logrus.Fields{"rounds": res.Rounds, "nodes": t.Len()}).Info("tree grown")
	return res, nil
}

// selectSplits runs distributed selection on the published snapshot and
// applies its decisions to the tree, publishing the result. It returns
// the number of splits applied and of leaves declared.
func (g *Grower) selectSplits(ctx context.Context, t *tree.Tree, st *state) (int, int, error) {
	start := time.Now()
	defer g.Metrics.ObservePhase("select", start)
	snapshot, err := g.Store.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	decisions, err := nodesplit.Select(ctx, g.Runner, st.input, snapshot, g.Config)
	if err != nil {
		return 0, 0, err
	}
	var splits, leaves int
	for _, d := range decisions {
		if d.Split == nil {
			if n := t.Node(d.LeafID); n != nil && n.State == tree.Frontier {
				if err = t.MarkLeaf(d.LeafID); err != nil {
					return 0, 0, err
				}
				st.settled += n.Total()
				leaves++
			}
			continue
		}
		trueID, falseID, err := t.AddSplit(d.LeafID, d.Split, d.TrueCounts, d.FalseCounts)
		if err != nil {
			return 0, 0, err
		}
		for _, id := range []tree.NodeID{trueID, falseID} {
			if total := t.Node(id).Total(); total < g.Config.SubtreeFloor {
				st.settled += total
			}
		}
		splits++
	}
	return splits, leaves, g.Store.Publish(ctx, t)
}

// growSubtrees grows the subtrees of the frontier nodes below the
// subtree floor on the published snapshot, grafts them and publishes
// the result. When filter is set, the instances that land on leaves of
// the new tree are then filtered out of the active dataset. It returns
// the number of subtrees grafted.
func (g *Grower) growSubtrees(ctx context.Context, t *tree.Tree, st *state, round int, filter bool) (int, error) {
	start := time.Now()
	snapshot, err := g.Store.Load(ctx)
	if err != nil {
		return 0, err
	}
	subtrees, err := subtree.Run(ctx, g.Runner, st.input, snapshot, g.Config)
	if err != nil {
		return 0, err
	}
	var nodes int
	for _, s := range subtrees {
		if err = t.Graft(s); err != nil {
			return 0, err
		}
		nodes += s.Size()
	}
	g.logger().WithFields(logrus.Fields{"run": g.RunID, "subtrees": len(subtrees), "nodes": nodes}).Debug("subtrees grafted")
	if err = g.Store.Publish(ctx, t); err != nil {
		return 0, err
	}
	g.Metrics.SubtreesGrafted(len(subtrees))
	g.Metrics.ObservePhase("subtrees", start)
	if !filter {
		return len(subtrees), nil
	}
	start = time.Now()
	if snapshot, err = g.Store.Load(ctx); err != nil {
		return 0, err
	}
	name := fmt.Sprintf("%s/round-%04d", g.RunID, round)
	filtered, err := g.Runner.Filter(ctx, st.input, g.Storage, name, func(ctx context.Context, row string) (bool, error) {
		if feature.IsBlank(row) {
			return false, nil
		}
		inst, err := feature.ParseInstance(row, snapshot.Fields)
		if err != nil {
			return false, err
		}
		n, err := snapshot.Route(inst)
		if err != nil {
			return false, err
		}
		return !n.IsLeaf(), nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "filtering instances on leaves")
	}
	if st.intermediate != "" {
		if err = g.Storage.Remove(ctx, st.intermediate); err != nil {
			g.logger().WithError(err).Warn("removing intermediate dataset")
		}
	}
	st.input = filtered
	st.intermediate = name
	g.Metrics.ObservePhase("filter", start)
	return len(subtrees), nil
}

// belowFloor returns whether the tree has frontier nodes below the
// subtree floor, which only a subtree phase expands
func (g *Grower) belowFloor(t *tree.Tree) bool {
	for _, n := range t.Frontier() {
		if n.Total() < g.Config.SubtreeFloor {
			return true
		}
	}
	return false
}

// setup fills in the collaborators left unset with in-process ones
func (g *Grower) setup() {
	if g.RunID == "" {
		g.RunID = uuid.New().String()
	}
	if g.Runner == nil {
		g.Runner = mapreduce.NewRunner(g.Config.Workers, g.Logger)
	}
	if g.Store == nil {
		g.Store = tree.NewMemoryStore(json.NewCodec())
	}
	if g.Storage == nil {
		g.Storage = dataset.NewMemoryStorage()
	}
}

func (g *Grower) logger() logrus.FieldLogger {
	if g.Logger == nil {
		return logrus.StandardLogger()
	}
	return g.Logger
}
