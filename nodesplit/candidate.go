package nodesplit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/partition"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/pkg/errors"
)

// NoGain is the gain and value of a candidate for a field on which no
// split qualified
const NoGain = -math.MaxFloat64

/*
Candidate is the best split found for a frontier node on a field, as
exchanged between the stages of distributed selection. Its record is

	leafId,fieldId,splitValue,informationGain,trueCounts,falseCounts

where counts are written as category@count pairs joined by semicolons,
in the order of the objective classes.
*/
type Candidate struct {
	LeafID      tree.NodeID
	FieldIndex  int
	Value       string
	Gain        float64
	TrueCounts  partition.Counts
	FalseCounts partition.Counts
}

// noGain returns the candidate recorded for a field on which no
// split qualified
func noGain(leafID tree.NodeID, fieldIndex int, classes *partition.Classes) *Candidate {
	return &Candidate{
		LeafID:      leafID,
		FieldIndex:  fieldIndex,
		Value:       feature.FormatNumber(NoGain),
		Gain:        NoGain,
		TrueCounts:  classes.NewCounts(),
		FalseCounts: classes.NewCounts(),
	}
}

func fromPartition(leafID tree.NodeID, p *partition.Partition) *Candidate {
	return &Candidate{
		LeafID:      leafID,
		FieldIndex:  p.Split.FieldIndex,
		Value:       p.Split.Value(),
		Gain:        p.Gain,
		TrueCounts:  p.TrueCounts,
		FalseCounts: p.FalseCounts,
	}
}

// Record returns the wire record of the candidate
func (c *Candidate) Record(classes *partition.Classes) string {
	return strings.Join([]string{
		strconv.FormatInt(int64(c.LeafID), 10),
		strconv.Itoa(c.FieldIndex),
		c.Value,
		feature.FormatNumber(c.Gain),
		encodeCounts(c.TrueCounts, classes),
		encodeCounts(c.FalseCounts, classes),
	}, ",")
}

// ParseCandidate takes a wire record and the objective classes and
// returns the candidate it describes
func ParseCandidate(record string, classes *partition.Classes) (*Candidate, error) {
	parts := strings.Split(record, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("candidate record %q has %d parts instead of 6", record, len(parts))
	}
	leafID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing leaf id of candidate record %q", record)
	}
	fieldIndex, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, errors.Wrapf(err, "parsing field id of candidate record %q", record)
	}
	gain, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing gain of candidate record %q", record)
	}
	trueCounts, err := decodeCounts(parts[4], classes)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing true counts of candidate record %q", record)
	}
	falseCounts, err := decodeCounts(parts[5], classes)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing false counts of candidate record %q", record)
	}
	return &Candidate{
		LeafID:      tree.NodeID(leafID),
		FieldIndex:  fieldIndex,
		Value:       parts[2],
		Gain:        gain,
		TrueCounts:  trueCounts,
		FalseCounts: falseCounts,
	}, nil
}

func encodeCounts(c partition.Counts, classes *partition.Classes) string {
	parts := make([]string, 0, len(c))
	for i, name := range classes.Names() {
		parts = append(parts, fmt.Sprintf("%s@%d", name, c[i]))
	}
	return strings.Join(parts, ";")
}

// decodeCounts reads the counts expecting every class in order, so
// class names holding separators are read back correctly.
func decodeCounts(s string, classes *partition.Classes) (partition.Counts, error) {
	c := classes.NewCounts()
	rest := s
	for i, name := range classes.Names() {
		if i > 0 {
			if !strings.HasPrefix(rest, ";") {
				return nil, fmt.Errorf("expected ';' before class %q in %q", name, s)
			}
			rest = rest[1:]
		}
		if !strings.HasPrefix(rest, name+"@") {
			return nil, fmt.Errorf("expected class %q in %q", name, s)
		}
		rest = rest[len(name)+1:]
		end := strings.IndexByte(rest, ';')
		if end < 0 {
			end = len(rest)
		}
		n, err := strconv.ParseInt(rest[:end], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing count of class %q", name)
		}
		c[i] = n
		rest = rest[end:]
	}
	if rest != "" {
		return nil, fmt.Errorf("unexpected trailing %q in %q", rest, s)
	}
	return c, nil
}

/*
Decision is what distributed selection resolves for a frontier node:
either a split to apply, with the counts of its sides, or, when Split is
nil, that the node is a leaf.
*/
type Decision struct {
	LeafID      tree.NodeID
	Split       *tree.Split
	Gain        float64
	TrueCounts  tree.ClassCounts
	FalseCounts tree.ClassCounts
}

/*
Decide takes the tree a candidate was found on, the candidate and the
objective classes and returns the decision it supports: a split if it
gains information, or a leaf otherwise.
*/
func Decide(t *tree.Tree, c *Candidate, classes *partition.Classes) (*Decision, error) {
	d := &Decision{LeafID: c.LeafID, Gain: c.Gain}
	if c.Gain <= 0 {
		return d, nil
	}
	if c.FieldIndex < 0 || c.FieldIndex >= len(t.Fields) {
		return nil, fmt.Errorf("candidate for node %d on unknown field %d", c.LeafID, c.FieldIndex)
	}
	if t.Fields[c.FieldIndex].IsNumeric() {
		v, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing threshold of candidate for node %d", c.LeafID)
		}
		d.Split = tree.NewThreshold(c.FieldIndex, v)
	} else {
		d.Split = tree.NewEquality(c.FieldIndex, c.Value)
	}
	d.TrueCounts = classes.ClassCounts(c.TrueCounts)
	d.FalseCounts = classes.ClassCounts(c.FalseCounts)
	return d, nil
}
