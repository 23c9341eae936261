/*
Package nodesplit selects, in parallel over a sharded dataset, the best
split for every frontier node of a tree large enough to be split through
distributed selection, or declares it a leaf when nothing gains
information.

Selection runs as two jobs. The first routes every instance to its node
and emits a pair for every field other than the objective, and reduces
each node and field into the best candidate split on it. The second
groups the candidates by node and keeps the best one.
*/
package nodesplit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ashenfad/hadooptree/config"
	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/ashenfad/hadooptree/partition"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/pkg/errors"
)

type fieldRange struct {
	low, high float64
}

/*
Mapper routes instances through a snapshot of the tree and, for those
landing on frontier nodes at or above the subtree floor, emits a pair for
every field other than the objective. Keys are leafId,fieldId, followed by
the range of the field at the node for numeric fields, and values are the
field value and the objective value of the instance.
*/
type Mapper struct {
	tree   *tree.Tree
	cfg    config.Config
	ranges map[tree.NodeID][]fieldRange
}

/*
NewMapper takes a tree snapshot and a config and returns a Mapper for
them. The ranges of numeric fields at every eligible node are worked out
once from the snapshot.
*/
func NewMapper(snapshot *tree.Tree, cfg config.Config) (*Mapper, error) {
	m := &Mapper{tree: snapshot, cfg: cfg, ranges: make(map[tree.NodeID][]fieldRange)}
	for _, n := range snapshot.Frontier() {
		if n.Total() < cfg.SubtreeFloor {
			continue
		}
		ranges := make([]fieldRange, len(snapshot.Fields))
		for i, f := range snapshot.Fields {
			if i == snapshot.Objective || !f.IsNumeric() {
				continue
			}
			low, high, err := snapshot.Range(n.ID, i)
			if err != nil {
				return nil, err
			}
			ranges[i] = fieldRange{low, high}
		}
		m.ranges[n.ID] = ranges
	}
	return m, nil
}

// Map routes an instance and emits its field pairs
func (m *Mapper) Map(ctx context.Context, record string, emit mapreduce.Emitter) error {
	if feature.IsBlank(record) {
		return nil
	}
	inst, err := feature.ParseInstance(record, m.tree.Fields)
	if err != nil {
		return err
	}
	n, err := m.tree.Route(inst)
	if err != nil {
		return err
	}
	ranges, ok := m.ranges[n.ID]
	if !ok {
		return nil
	}
	objective := inst.Token(m.tree.Objective)
	for i, f := range m.tree.Fields {
		if i == m.tree.Objective {
			continue
		}
		key := fmt.Sprintf("%d,%d", n.ID, i)
		if f.IsNumeric() {
			key = fmt.Sprintf("%s,%s,%s", key, feature.FormatNumber(ranges[i].low), feature.FormatNumber(ranges[i].high))
		}
		if err = emit(key, inst.Token(i)+","+objective); err != nil {
			return err
		}
	}
	return nil
}

/*
FieldReducer reduces the pairs of a node and field into the best split on
the field, searching equality splits on every category of categorical
fields and bucketed thresholds over the range of numeric ones. It emits the
candidate record keyed by node id, with no gain if nothing qualified.
*/
type FieldReducer struct {
	tree    *tree.Tree
	classes *partition.Classes
	cfg     config.Config
}

// NewFieldReducer takes a tree snapshot and a config and returns a
// FieldReducer for them
func NewFieldReducer(snapshot *tree.Tree, cfg config.Config) *FieldReducer {
	return &FieldReducer{tree: snapshot, classes: partition.NewClasses(snapshot.ObjectiveField()), cfg: cfg}
}

// Reduce finds the best split for a node on a field
func (r *FieldReducer) Reduce(ctx context.Context, key string, values []string, emit mapreduce.Emitter) error {
	parts := strings.Split(key, ",")
	if len(parts) != 2 && len(parts) != 4 {
		return fmt.Errorf("malformed key %q", key)
	}
	leafID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return errors.Wrapf(err, "parsing leaf id of key %q", key)
	}
	fieldIndex, err := strconv.Atoi(parts[1])
	if err != nil {
		return errors.Wrapf(err, "parsing field id of key %q", key)
	}
	if fieldIndex < 0 || fieldIndex >= len(r.tree.Fields) {
		return fmt.Errorf("unknown field %d in key %q", fieldIndex, key)
	}
	field := r.tree.Fields[fieldIndex]
	var p *partition.Partition
	if field.IsNumeric() {
		if len(parts) != 4 {
			return fmt.Errorf("key %q for numeric field has no range", key)
		}
		low, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return errors.Wrapf(err, "parsing range of key %q", key)
		}
		high, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return errors.Wrapf(err, "parsing range of key %q", key)
		}
		pairs := make([]partition.NumericPair, 0, len(values))
		for _, v := range values {
			token, class, err := r.splitValue(v)
			if err != nil {
				return err
			}
			x, err := strconv.ParseFloat(token, 64)
			if err != nil {
				return errors.Wrapf(err, "parsing value %q of field %d", token, fieldIndex)
			}
			pairs = append(pairs, partition.NumericPair{Value: x, Class: class})
		}
		p = partition.Bucketed(fieldIndex, low, high, r.cfg.NumericSplits, pairs, r.classes.Len(), r.cfg.SplitFloor)
	} else {
		pairs := make([]partition.CategoricalPair, 0, len(values))
		for _, v := range values {
			token, class, err := r.splitValue(v)
			if err != nil {
				return err
			}
			pairs = append(pairs, partition.CategoricalPair{Category: token, Class: class})
		}
		p = partition.Categorical(fieldIndex, field.CategoryList(), pairs, r.classes.Len(), r.cfg.SplitFloor)
	}
	c := noGain(tree.NodeID(leafID), fieldIndex, r.classes)
	if p != nil {
		c = fromPartition(tree.NodeID(leafID), p)
	}
	return emit(parts[0], c.Record(r.classes))
}

func (r *FieldReducer) splitValue(v string) (string, int, error) {
	i := strings.LastIndexByte(v, ',')
	if i < 0 {
		return "", 0, fmt.Errorf("malformed value %q", v)
	}
	class, ok := r.classes.Index(v[i+1:])
	if !ok {
		return "", 0, fmt.Errorf("unknown objective category %q", v[i+1:])
	}
	return v[:i], class, nil
}

/*
LeafReducer reduces the candidates of a node into the one with the
highest gain, ties going to the lowest field id, and emits its record.
*/
type LeafReducer struct {
	classes *partition.Classes
}

// NewLeafReducer takes the objective classes and returns a LeafReducer
func NewLeafReducer(classes *partition.Classes) *LeafReducer {
	return &LeafReducer{classes}
}

// Reduce keeps the best candidate of a node
func (r *LeafReducer) Reduce(ctx context.Context, key string, values []string, emit mapreduce.Emitter) error {
	candidates := make([]*Candidate, 0, len(values))
	for _, v := range values {
		c, err := ParseCandidate(v, r.classes)
		if err != nil {
			return err
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].FieldIndex < candidates[j].FieldIndex })
	var best *Candidate
	for _, c := range candidates {
		if best == nil || c.Gain > best.Gain {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return emit(key, best.Record(r.classes))
}

/*
Select takes a context, a runner, the active dataset, a snapshot of the
tree and a config and runs distributed selection over the dataset,
returning a decision for every frontier node at or above the subtree floor
that received instances, ordered by node id.
*/
func Select(ctx context.Context, runner *mapreduce.Runner, ds dataset.Dataset, snapshot *tree.Tree, cfg config.Config) ([]*Decision, error) {
	mapper, err := NewMapper(snapshot, cfg)
	if err != nil {
		return nil, err
	}
	if len(mapper.ranges) == 0 {
		return nil, nil
	}
	classes := partition.NewClasses(snapshot.ObjectiveField())
	fieldSplits, err := runner.Run(ctx, mapreduce.Job{
		Name:    "node-field-splits",
		Input:   ds,
		Mapper:  mapper,
		Reducer: NewFieldReducer(snapshot, cfg),
	})
	if err != nil {
		return nil, err
	}
	records := make([]string, 0, len(fieldSplits))
	for _, kv := range fieldSplits {
		records = append(records, kv.Value)
	}
	leafSplits, err := runner.Run(ctx, mapreduce.Job{
		Name:    "node-splits",
		Input:   dataset.Lines(records, runner.Workers),
		Mapper:  mapreduce.MapperFunc(keyByLeaf),
		Reducer: NewLeafReducer(classes),
	})
	if err != nil {
		return nil, err
	}
	decisions := make([]*Decision, 0, len(leafSplits))
	for _, kv := range leafSplits {
		c, err := ParseCandidate(kv.Value, classes)
		if err != nil {
			return nil, err
		}
		d, err := Decide(snapshot, c, classes)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	sort.Slice(decisions, func(i, j int) bool { return decisions[i].LeafID < decisions[j].LeafID })
	return decisions, nil
}

func keyByLeaf(ctx context.Context, record string, emit mapreduce.Emitter) error {
	i := strings.IndexByte(record, ',')
	if i < 0 {
		return fmt.Errorf("malformed candidate record %q", record)
	}
	return emit(record[:i], record)
}
