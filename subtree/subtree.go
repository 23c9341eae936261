/*
Package subtree grows whole subtrees for frontier nodes small enough to
have all their instances processed in one place, searching exact splits
recursively instead of going through distributed selection.
*/
package subtree

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ashenfad/hadooptree/config"
	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/ashenfad/hadooptree/partition"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/ashenfad/hadooptree/tree/json"
	"github.com/pkg/errors"
)

type grower struct {
	tree    *tree.Tree
	classes *partition.Classes
	floor   int64
}

/*
Grow takes a tree snapshot, the id of one of its frontier nodes, the
instances routed to it and a config, and grows the subtree for the node:
at every node the split with the highest positive gain among the fields
other than the objective is kept, searching equality splits on every
category of categorical fields and thresholds between consecutive
distinct values of numeric ones, and instances are sent down the sides
of the split. Nodes where no split qualifies are leaves.

The root of the returned subtree carries the id and counts of the node;
the rest of its nodes are Unassigned.
*/
func Grow(snapshot *tree.Tree, nodeID tree.NodeID, instances []feature.Instance, cfg config.Config) (*tree.Subtree, error) {
	n := snapshot.Node(nodeID)
	if n == nil {
		return nil, fmt.Errorf("growing subtree: node %d not found", nodeID)
	}
	g := &grower{tree: snapshot, classes: partition.NewClasses(snapshot.ObjectiveField()), floor: cfg.SplitFloor}
	classes := make([]int, len(instances))
	for i, inst := range instances {
		c, ok := inst.Category(snapshot.Objective)
		if !ok {
			return nil, fmt.Errorf("growing subtree for node %d: instance has no objective category", nodeID)
		}
		if classes[i], ok = g.classes.Index(c); !ok {
			return nil, fmt.Errorf("growing subtree for node %d: unknown objective category %q", nodeID, c)
		}
	}
	root := &tree.Subtree{ID: nodeID, Counts: n.Counts.Clone()}
	g.grow(root, instances, classes)
	return root, nil
}

func (g *grower) grow(st *tree.Subtree, instances []feature.Instance, classes []int) {
	best := g.best(instances, classes)
	if best == nil {
		return
	}
	var trueInsts, falseInsts []feature.Instance
	var trueClasses, falseClasses []int
	for i, inst := range instances {
		if best.Split.Eval(inst) {
			trueInsts = append(trueInsts, inst)
			trueClasses = append(trueClasses, classes[i])
		} else {
			falseInsts = append(falseInsts, inst)
			falseClasses = append(falseClasses, classes[i])
		}
	}
	st.Split = best.Split
	st.True = &tree.Subtree{ID: tree.Unassigned, Counts: g.classes.ClassCounts(best.TrueCounts)}
	st.False = &tree.Subtree{ID: tree.Unassigned, Counts: g.classes.ClassCounts(best.FalseCounts)}
	g.grow(st.True, trueInsts, trueClasses)
	g.grow(st.False, falseInsts, falseClasses)
}

// best returns the split with the highest positive gain over the fields,
// ties going to the lowest field index
func (g *grower) best(instances []feature.Instance, classes []int) *partition.Partition {
	var best *partition.Partition
	for i, f := range g.tree.Fields {
		if i == g.tree.Objective {
			continue
		}
		var p *partition.Partition
		if f.IsNumeric() {
			pairs := make([]partition.NumericPair, 0, len(instances))
			for j, inst := range instances {
				v, _ := inst.Number(i)
				pairs = append(pairs, partition.NumericPair{Value: v, Class: classes[j]})
			}
			p = partition.Exact(i, pairs, g.classes.Len(), g.floor)
		} else {
			pairs := make([]partition.CategoricalPair, 0, len(instances))
			for j, inst := range instances {
				c, _ := inst.Category(i)
				pairs = append(pairs, partition.CategoricalPair{Category: c, Class: classes[j]})
			}
			p = partition.Categorical(i, f.CategoryList(), pairs, g.classes.Len(), g.floor)
		}
		if p != nil && p.Gain > 0 && (best == nil || p.Gain > best.Gain) {
			best = p
		}
	}
	return best
}

/*
NewMapper takes a tree snapshot and a config and returns a mapper that
routes instances through the snapshot and emits those landing on frontier
nodes below the subtree floor keyed by node id.
*/
func NewMapper(snapshot *tree.Tree, cfg config.Config) mapreduce.Mapper {
	return mapreduce.MapperFunc(func(ctx context.Context, record string, emit mapreduce.Emitter) error {
		if feature.IsBlank(record) {
			return nil
		}
		inst, err := feature.ParseInstance(record, snapshot.Fields)
		if err != nil {
			return err
		}
		n, err := snapshot.Route(inst)
		if err != nil {
			return err
		}
		if n.State != tree.Frontier || n.Total() >= cfg.SubtreeFloor {
			return nil
		}
		return emit(strconv.FormatInt(int64(n.ID), 10), record)
	})
}

/*
NewReducer takes a tree snapshot and a config and returns a reducer that
grows the subtree of a node from its instances and emits its document
keyed by node id.
*/
func NewReducer(snapshot *tree.Tree, cfg config.Config) mapreduce.Reducer {
	return mapreduce.ReducerFunc(func(ctx context.Context, key string, values []string, emit mapreduce.Emitter) error {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "parsing node id %q", key)
		}
		instances := make([]feature.Instance, 0, len(values))
		for _, v := range values {
			inst, err := feature.ParseInstance(v, snapshot.Fields)
			if err != nil {
				return err
			}
			instances = append(instances, inst)
		}
		st, err := Grow(snapshot, tree.NodeID(id), instances, cfg)
		if err != nil {
			return err
		}
		doc, err := json.EncodeSubtree(st)
		if err != nil {
			return err
		}
		return emit(key, string(doc))
	})
}

/*
Run takes a context, a runner, the active dataset, a tree snapshot and a
config and grows the subtrees of every frontier node below the subtree
floor that receives instances, returning them ordered by root id.
*/
func Run(ctx context.Context, runner *mapreduce.Runner, ds dataset.Dataset, snapshot *tree.Tree, cfg config.Config) ([]*tree.Subtree, error) {
	out, err := runner.Run(ctx, mapreduce.Job{
		Name:    "grow-subtrees",
		Input:   ds,
		Mapper:  NewMapper(snapshot, cfg),
		Reducer: NewReducer(snapshot, cfg),
	})
	if err != nil {
		return nil, err
	}
	subtrees := make([]*tree.Subtree, 0, len(out))
	for _, kv := range out {
		st, err := json.DecodeSubtree([]byte(kv.Value))
		if err != nil {
			return nil, err
		}
		subtrees = append(subtrees, st)
	}
	sort.Slice(subtrees, func(i, j int) bool { return subtrees[i].ID < subtrees[j].ID })
	return subtrees, nil
}
