package nodesplit

import (
	"context"
	"strings"
	"testing"

	"github.com/ashenfad/hadooptree/config"
	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/ashenfad/hadooptree/partition"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rows = []string{
	"a,1,x",
	"a,2,x",
	"b,3,y",
	"b,4,y",
}

func fieldsFor(t *testing.T, rows []string) []*feature.Field {
	var fields []*feature.Field
	for _, r := range rows {
		for i, token := range strings.Split(r, ",") {
			if i == len(fields) {
				fields = append(fields, feature.NewField(i))
			}
			require.NoError(t, fields[i].Add(token))
		}
	}
	return fields
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SplitFloor = 0
	cfg.SubtreeFloor = 0
	cfg.NumericSplits = 3
	cfg.Workers = 2
	return cfg
}

func TestCandidateRecord(t *testing.T) {
	classes := partition.NewClassesFromNames([]string{"x", "y"})
	c := &Candidate{LeafID: 4, FieldIndex: 2, Value: "2.5", Gain: 0.5, TrueCounts: partition.Counts{3, 0}, FalseCounts: partition.Counts{1, 4}}
	record := c.Record(classes)
	assert.Equal(t, "4,2,2.5,0.5,x@3;y@0,x@1;y@4", record)
	parsed, err := ParseCandidate(record, classes)
	require.NoError(t, err)
	assert.Equal(t, c, parsed)

	none := noGain(7, 1, classes)
	parsed, err = ParseCandidate(none.Record(classes), classes)
	require.NoError(t, err)
	assert.Equal(t, NoGain, parsed.Gain)
	assert.Equal(t, partition.Counts{0, 0}, parsed.TrueCounts)

	for _, bad := range []string{
		"4,2,2.5,0.5,x@3;y@0",
		"four,2,2.5,0.5,x@3;y@0,x@1;y@4",
		"4,2,2.5,lots,x@3;y@0,x@1;y@4",
		"4,2,2.5,0.5,y@0;x@3,x@1;y@4",
		"4,2,2.5,0.5,x@3;y@0;z@1,x@1;y@4",
		"4,2,2.5,0.5,x@3;y@zero,x@1;y@4",
	} {
		_, err := ParseCandidate(bad, classes)
		assert.Error(t, err, bad)
	}
}

func TestDecide(t *testing.T) {
	fields := fieldsFor(t, rows)
	tr, err := tree.New(fields, 2)
	require.NoError(t, err)
	classes := partition.NewClasses(tr.ObjectiveField())

	d, err := Decide(tr, &Candidate{LeafID: 0, FieldIndex: 1, Value: "2.5", Gain: 1, TrueCounts: partition.Counts{2, 0}, FalseCounts: partition.Counts{0, 2}}, classes)
	require.NoError(t, err)
	assert.Equal(t, tree.NewThreshold(1, 2.5), d.Split)
	assert.Equal(t, tree.ClassCounts{"x": 2, "y": 0}, d.TrueCounts)
	assert.Equal(t, tree.ClassCounts{"x": 0, "y": 2}, d.FalseCounts)

	d, err = Decide(tr, &Candidate{LeafID: 0, FieldIndex: 0, Value: "a", Gain: 1, TrueCounts: partition.Counts{2, 0}, FalseCounts: partition.Counts{0, 2}}, classes)
	require.NoError(t, err)
	assert.Equal(t, tree.NewEquality(0, "a"), d.Split)

	for _, gain := range []float64{0, NoGain} {
		d, err = Decide(tr, &Candidate{LeafID: 0, FieldIndex: 0, Value: "a", Gain: gain}, classes)
		require.NoError(t, err)
		assert.Nil(t, d.Split)
	}

	_, err = Decide(tr, &Candidate{LeafID: 0, FieldIndex: 1, Value: "high", Gain: 1}, classes)
	assert.Error(t, err)
}

func collect(t *testing.T, m mapreduce.Mapper, records ...string) []mapreduce.KeyValue {
	var out []mapreduce.KeyValue
	for _, r := range records {
		require.NoError(t, m.Map(context.Background(), r, func(k, v string) error {
			out = append(out, mapreduce.KeyValue{Key: k, Value: v})
			return nil
		}))
	}
	return out
}

func TestMapper(t *testing.T) {
	fields := fieldsFor(t, rows)
	tr, err := tree.New(fields, 2)
	require.NoError(t, err)
	m, err := NewMapper(tr, testConfig())
	require.NoError(t, err)
	assert.Equal(t, []mapreduce.KeyValue{
		{Key: "0,0", Value: "a,x"},
		{Key: "0,1,1,4", Value: "2,x"},
	}, collect(t, m, "a, 2, x", "   "))
	assert.Error(t, m.Map(context.Background(), "a,two,x", func(string, string) error { return nil }))

	cfg := testConfig()
	cfg.SubtreeFloor = 5
	m, err = NewMapper(tr, cfg)
	require.NoError(t, err)
	assert.Empty(t, collect(t, m, "a,2,x"))
}

func TestFieldReducer(t *testing.T) {
	fields := fieldsFor(t, rows)
	tr, err := tree.New(fields, 2)
	require.NoError(t, err)
	r := NewFieldReducer(tr, testConfig())

	var out []mapreduce.KeyValue
	emit := func(k, v string) error {
		out = append(out, mapreduce.KeyValue{Key: k, Value: v})
		return nil
	}
	require.NoError(t, r.Reduce(context.Background(), "0,1,1,4", []string{"1,x", "2,x", "3,y", "4,y"}, emit))
	require.NoError(t, r.Reduce(context.Background(), "0,0", []string{"a,x", "a,x", "b,y", "b,y"}, emit))
	require.NoError(t, r.Reduce(context.Background(), "0,0", []string{"a,x", "a,y"}, emit))
	require.Len(t, out, 3)
	classes := partition.NewClasses(tr.ObjectiveField())
	var candidates []*Candidate
	for _, kv := range out {
		assert.Equal(t, "0", kv.Key)
		c, err := ParseCandidate(kv.Value, classes)
		require.NoError(t, err)
		candidates = append(candidates, c)
	}
	assert.Equal(t, 1, candidates[0].FieldIndex)
	assert.Equal(t, "2.5", candidates[0].Value)
	assert.InDelta(t, 1.0, candidates[0].Gain, 1e-12)
	assert.Equal(t, partition.Counts{2, 0}, candidates[0].TrueCounts)
	assert.Equal(t, partition.Counts{0, 2}, candidates[0].FalseCounts)
	assert.Equal(t, "a", candidates[1].Value)
	assert.InDelta(t, 1.0, candidates[1].Gain, 1e-12)
	assert.Equal(t, NoGain, candidates[2].Gain)

	assert.Error(t, r.Reduce(context.Background(), "0,1", []string{"1,x"}, emit))
	assert.Error(t, r.Reduce(context.Background(), "0,9", []string{"1,x"}, emit))
	assert.Error(t, r.Reduce(context.Background(), "0,0", []string{"a,z"}, emit))
}

func TestLeafReducer(t *testing.T) {
	classes := partition.NewClassesFromNames([]string{"x", "y"})
	r := NewLeafReducer(classes)
	var out []string
	emit := func(k, v string) error {
		assert.Equal(t, "3", k)
		out = append(out, v)
		return nil
	}
	require.NoError(t, r.Reduce(context.Background(), "3", []string{
		"3,2,b,0.5,x@1;y@0,x@0;y@1",
		"3,1,a,0.5,x@1;y@0,x@0;y@1",
		"3,0,-1.7976931348623157e+308,-1.7976931348623157e+308,x@0;y@0,x@0;y@0",
	}, emit))
	assert.Equal(t, []string{"3,1,a,0.5,x@1;y@0,x@0;y@1"}, out)
}

func TestSelect(t *testing.T) {
	fields := fieldsFor(t, rows)
	tr, err := tree.New(fields, 2)
	require.NoError(t, err)
	runner := mapreduce.NewRunner(2, nil)
	cfg := testConfig()

	decisions, err := Select(context.Background(), runner, dataset.Lines(rows, 2), tr, cfg)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, tree.NodeID(0), decisions[0].LeafID)
	assert.Equal(t, tree.NewEquality(0, "a"), decisions[0].Split)
	assert.InDelta(t, 1.0, decisions[0].Gain, 1e-12)

	trueID, falseID, err := tr.AddSplit(0, decisions[0].Split, decisions[0].TrueCounts, decisions[0].FalseCounts)
	require.NoError(t, err)
	decisions, err = Select(context.Background(), runner, dataset.Lines(rows, 2), tr, cfg)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, trueID, decisions[0].LeafID)
	assert.Equal(t, falseID, decisions[1].LeafID)
	assert.Nil(t, decisions[0].Split)
	assert.Nil(t, decisions[1].Split)

	cfg.SubtreeFloor = 100
	decisions, err = Select(context.Background(), runner, dataset.Lines(rows, 2), tr, cfg)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}
