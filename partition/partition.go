/*
Package partition evaluates the ways of splitting a set of instances in
two according to a field, measuring how much information about the
objective field each split gains, and finds the best one.
*/
package partition

import (
	"math"
	"sort"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/tree"
	"gonum.org/v1/gonum/stat"
)

/*
Counts holds how many instances of each objective category a set has,
indexed by the position of the category in its Classes.
*/
type Counts []int64

// Sum returns the total number of instances in the counts
func (c Counts) Sum() int64 {
	var s int64
	for _, n := range c {
		s += n
	}
	return s
}

// Clone returns a copy of the counts
func (c Counts) Clone() Counts {
	r := make(Counts, len(c))
	copy(r, c)
	return r
}

// Add adds the given counts to these
func (c Counts) Add(o Counts) {
	for i, n := range o {
		c[i] += n
	}
}

// Minus returns the counts that result of removing the given ones
// from these
func (c Counts) Minus(o Counts) Counts {
	r := c.Clone()
	for i, n := range o {
		r[i] -= n
	}
	return r
}

/*
Classes is the ordered list of categories of the objective field. Every
Counts vector is indexed by positions in it.
*/
type Classes struct {
	names []string
	index map[string]int
}

// NewClasses takes the objective field and returns its Classes, in
// lexical order of category
func NewClasses(objective *feature.Field) *Classes {
	return NewClassesFromNames(objective.CategoryList())
}

// NewClassesFromNames takes an ordered list of categories and returns
// the Classes for them
func NewClassesFromNames(names []string) *Classes {
	c := &Classes{names: names, index: make(map[string]int, len(names))}
	for i, n := range names {
		c.index[n] = i
	}
	return c
}

// Len returns the number of classes
func (c *Classes) Len() int {
	return len(c.names)
}

// Names returns the categories in order
func (c *Classes) Names() []string {
	return c.names
}

// Index returns the position of a category
func (c *Classes) Index(category string) (int, bool) {
	i, ok := c.index[category]
	return i, ok
}

// NewCounts returns zeroed counts for the classes
func (c *Classes) NewCounts() Counts {
	return make(Counts, len(c.names))
}

// ClassCounts turns a counts vector into the counts of a tree node
func (c *Classes) ClassCounts(counts Counts) tree.ClassCounts {
	cc := make(tree.ClassCounts, len(c.names))
	for i, n := range c.names {
		cc[n] = counts[i]
	}
	return cc
}

/*
Entropy takes a counts vector and returns its Shannon entropy in bits.
Categories with no instances do not contribute and empty counts have
no entropy.
*/
func Entropy(c Counts) float64 {
	total := c.Sum()
	if total == 0 {
		return 0
	}
	probs := make([]float64, len(c))
	for i, n := range c {
		probs[i] = float64(n) / float64(total)
	}
	return stat.Entropy(probs) / math.Ln2
}

/*
InformationGain takes the counts of a set and the counts of the two
sides of a split of it and returns the information gained with the
split: the entropy of the set minus the entropy of each side weighted
by its share of the set.
*/
func InformationGain(parent, trueCounts, falseCounts Counts) float64 {
	total := float64(parent.Sum())
	if total == 0 {
		return 0
	}
	return Entropy(parent) -
		float64(trueCounts.Sum())/total*Entropy(trueCounts) -
		float64(falseCounts.Sum())/total*Entropy(falseCounts)
}

/*
Partition is a split of a set of instances together with the
information it gains and the counts of each of its sides.
*/
type Partition struct {
	Split       *tree.Split
	Gain        float64
	TrueCounts  Counts
	FalseCounts Counts
}

// CategoricalPair is the value of a categorical field and the objective
// class of an instance
type CategoricalPair struct {
	Category string
	Class    int
}

// NumericPair is the value of a numeric field and the objective class of
// an instance
type NumericPair struct {
	Value float64
	Class int
}

// search keeps the best qualifying candidate: both sides must have more
// instances than the floor and the gain must be strictly greater than
// the best one so far.
type search struct {
	floor int64
	best  *Partition
}

func (s *search) consider(parent, trueCounts, falseCounts Counts, split func() *tree.Split) {
	if trueCounts.Sum() <= s.floor || falseCounts.Sum() <= s.floor {
		return
	}
	gain := InformationGain(parent, trueCounts, falseCounts)
	if s.best != nil && gain <= s.best.Gain {
		return
	}
	s.best = &Partition{Split: split(), Gain: gain, TrueCounts: trueCounts.Clone(), FalseCounts: falseCounts.Clone()}
}

/*
Categorical takes the index of a categorical field, its categories in
order, the pairs of the instances of a set and the number of objective
classes, and returns the best equality split among those on each
category, or nil if none leaves more than floor instances on both sides.
Ties go to the category that comes first.
*/
func Categorical(fieldIndex int, categories []string, pairs []CategoricalPair, classes int, floor int64) *Partition {
	byCategory := make(map[string]Counts)
	parent := make(Counts, classes)
	for _, p := range pairs {
		c, ok := byCategory[p.Category]
		if !ok {
			c = make(Counts, classes)
			byCategory[p.Category] = c
		}
		c[p.Class]++
		parent[p.Class]++
	}
	s := &search{floor: floor}
	for _, category := range categories {
		trueCounts, ok := byCategory[category]
		if !ok {
			trueCounts = make(Counts, classes)
		}
		category := category
		s.consider(parent, trueCounts, parent.Minus(trueCounts), func() *tree.Split {
			return tree.NewEquality(fieldIndex, category)
		})
	}
	return s.best
}

/*
Bucketed takes the index of a numeric field, the range [low, high] of
its values, a number of splits, the pairs of the instances of a set and
the number of objective classes, and returns the best threshold split
on the boundaries of splits+1 equal-width buckets over the range, or nil
if none leaves more than floor instances on both sides.

Each instance goes to the bucket with the lowest boundary at or above its
value; instances above the range are ignored. Boundaries are tried in
ascending order and ties go to the lowest one.
*/
func Bucketed(fieldIndex int, low, high float64, splits int, pairs []NumericPair, classes int, floor int64) *Partition {
	if splits < 0 {
		splits = 0
	}
	boundaries := Boundaries(low, high, splits+1)
	buckets := make([]Counts, len(boundaries))
	for i := range buckets {
		buckets[i] = make(Counts, classes)
	}
	parent := make(Counts, classes)
	for _, p := range pairs {
		i := sort.SearchFloat64s(boundaries, p.Value)
		if i == len(boundaries) {
			continue
		}
		buckets[i][p.Class]++
		parent[p.Class]++
	}
	s := &search{floor: floor}
	less := make(Counts, classes)
	for i, b := range boundaries {
		less.Add(buckets[i])
		threshold := b
		s.consider(parent, less, parent.Minus(less), func() *tree.Split {
			return tree.NewThreshold(fieldIndex, threshold)
		})
	}
	return s.best
}

/*
Boundaries returns the upper boundaries of n equal-width buckets over
[low, high], in ascending order. The last one is always high.
*/
func Boundaries(low, high float64, n int) []float64 {
	if n < 1 {
		n = 1
	}
	size := (high - low) / float64(n)
	b := make([]float64, n)
	for i := 0; i < n-1; i++ {
		b[i] = low + float64(i+1)*size
	}
	b[n-1] = high
	return b
}

/*
Exact takes the index of a numeric field, the pairs of the instances of
a set and the number of objective classes, and returns the best threshold
split among those halfway between consecutive distinct values, or nil if
none leaves more than floor instances on both sides. Ties go to the lowest
threshold. The pairs are sorted in place.
*/
func Exact(fieldIndex int, pairs []NumericPair, classes int, floor int64) *Partition {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value < pairs[j].Value
		}
		return pairs[i].Class < pairs[j].Class
	})
	parent := make(Counts, classes)
	for _, p := range pairs {
		parent[p.Class]++
	}
	s := &search{floor: floor}
	less := make(Counts, classes)
	for i := 1; i < len(pairs); i++ {
		prev, cur := pairs[i-1].Value, pairs[i].Value
		less[pairs[i-1].Class]++
		if prev == cur {
			continue
		}
		threshold := prev + (cur-prev)/2
		if threshold >= cur {
			threshold = prev
		}
		s.consider(parent, less, parent.Minus(less), func() *tree.Split {
			return tree.NewThreshold(fieldIndex, threshold)
		})
	}
	return s.best
}
