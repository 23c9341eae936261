package tree

import (
	"fmt"

	"github.com/ashenfad/hadooptree/feature"
)

/*
SplitKind tells how a split tests the value of its field
*/
type SplitKind int

const (
	// Equality splits send instances whose category equals the split
	// category to the true branch
	Equality SplitKind = iota
	// Threshold splits send instances whose value is less than or equal
	// to the split threshold to the true branch
	Threshold
)

/*
Split is the test an internal node applies to instances to decide
which of its children they go to.
*/
type Split struct {
	FieldIndex int
	Kind       SplitKind
	Category   string
	Threshold  float64
}

/*
NewEquality takes a field index and a category and returns a split
testing the field for equality with the category.
*/
func NewEquality(fieldIndex int, category string) *Split {
	return &Split{FieldIndex: fieldIndex, Kind: Equality, Category: category}
}

/*
NewThreshold takes a field index and a threshold and returns a split
testing whether the field value is less than or equal to the threshold.
*/
func NewThreshold(fieldIndex int, threshold float64) *Split {
	return &Split{FieldIndex: fieldIndex, Kind: Threshold, Threshold: threshold}
}

// IsCategorical returns whether the split is an equality split
func (s *Split) IsCategorical() bool {
	return s.Kind == Equality
}

/*
Eval takes an instance and returns whether it satisfies the split. An
instance whose value for the field is not of the kind the split expects
does not satisfy it.
*/
func (s *Split) Eval(inst feature.Instance) bool {
	if s.Kind == Equality {
		v, ok := inst.Category(s.FieldIndex)
		return ok && v == s.Category
	}
	v, ok := inst.Number(s.FieldIndex)
	return ok && v <= s.Threshold
}

// Value returns the category or threshold of the split as a token
func (s *Split) Value() string {
	if s.Kind == Equality {
		return s.Category
	}
	return feature.FormatNumber(s.Threshold)
}

func (s *Split) String() string {
	if s.Kind == Equality {
		return fmt.Sprintf("field %d == %s", s.FieldIndex, s.Category)
	}
	return fmt.Sprintf("field %d <= %s", s.FieldIndex, s.Value())
}
