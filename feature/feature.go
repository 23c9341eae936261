package feature

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

/*
Kind identifies the representation a Field holds: a field is either
categorical or numeric, and which one is decided by the first value
it is given.
*/
type Kind int

const (
	// Undefined is the kind of a field that has not seen any value yet
	Undefined Kind = iota
	// Categorical fields take values among a finite set of strings
	Categorical
	// Numeric fields take real values
	Numeric
)

func (k Kind) String() string {
	switch k {
	case Categorical:
		return "categorical"
	case Numeric:
		return "numeric"
	}
	return "undefined"
}

/*
ErrTypeConflict is returned (wrapped) when a field that already holds values
of one kind is given a value of the other one.
*/
var ErrTypeConflict = errors.New("field type conflict")

/*
Field represents a column of the dataset together with the statistics
collected for it.

Categorical fields keep the count of every category observed. Numeric
fields keep the minimum, maximum and sum of the values observed. Both
keep the number of values observed in Count.
*/
type Field struct {
	Index      int
	Kind       Kind
	Categories map[string]int64
	Min        float64
	Max        float64
	Sum        float64
	Count      int64
}

/*
NewField takes the position of a column and returns a Field for it
with no kind assigned yet.
*/
func NewField(index int) *Field {
	return &Field{Index: index}
}

/*
NewCategoricalField takes the position of a column and the counts
for its categories and returns a categorical Field.
*/
func NewCategoricalField(index int, categories map[string]int64) *Field {
	f := &Field{Index: index, Kind: Categorical, Categories: make(map[string]int64, len(categories))}
	for c, n := range categories {
		f.Categories[c] = n
		f.Count += n
	}
	return f
}

/*
NewNumericField takes the position of a column and its range, sum and
count and returns a numeric Field.
*/
func NewNumericField(index int, min, max, sum float64, count int64) *Field {
	return &Field{Index: index, Kind: Numeric, Min: min, Max: max, Sum: sum, Count: count}
}

// IsCategorical returns whether the field is categorical
func (f *Field) IsCategorical() bool {
	return f.Kind == Categorical
}

// IsNumeric returns whether the field is numeric
func (f *Field) IsNumeric() bool {
	return f.Kind == Numeric
}

/*
AddCategorical takes a category and accounts for it in the field statistics.
It returns an error wrapping ErrTypeConflict if the field is numeric.
*/
func (f *Field) AddCategorical(category string) error {
	if f.Kind == Numeric {
		return errors.Wrapf(ErrTypeConflict, "field %d is numeric, got category %q", f.Index, category)
	}
	if f.Kind == Undefined {
		f.Kind = Categorical
		f.Categories = make(map[string]int64)
	}
	f.Categories[category]++
	f.Count++
	return nil
}

/*
AddNumeric takes a number and accounts for it in the field statistics.
It returns an error wrapping ErrTypeConflict if the field is categorical.
*/
func (f *Field) AddNumeric(v float64) error {
	if f.Kind == Categorical {
		return errors.Wrapf(ErrTypeConflict, "field %d is categorical, got number %v", f.Index, v)
	}
	if f.Kind == Undefined {
		f.Kind = Numeric
		f.Min = v
		f.Max = v
	}
	if v < f.Min {
		f.Min = v
	}
	if v > f.Max {
		f.Max = v
	}
	f.Sum += v
	f.Count++
	return nil
}

/*
Add takes a raw token, trims it and adds it to the field as a number if
it parses as one, or as a category otherwise. Empty tokens are ignored.
*/
func (f *Field) Add(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(token, 64); err == nil {
		return f.AddNumeric(v)
	}
	return f.AddCategorical(token)
}

/*
Merge takes the statistics collected for the same column elsewhere and
folds them into the field. Merging fields of different kinds returns an
error wrapping ErrTypeConflict.
*/
func (f *Field) Merge(o *Field) error {
	if o == nil || o.Kind == Undefined {
		return nil
	}
	if f.Kind == Undefined {
		*f = *o.Clone()
		return nil
	}
	if f.Kind != o.Kind {
		return errors.Wrapf(ErrTypeConflict, "merging %s field %d into %s one", o.Kind, o.Index, f.Kind)
	}
	if f.Kind == Categorical {
		for c, n := range o.Categories {
			f.Categories[c] += n
		}
	} else {
		if o.Min < f.Min {
			f.Min = o.Min
		}
		if o.Max > f.Max {
			f.Max = o.Max
		}
		f.Sum += o.Sum
	}
	f.Count += o.Count
	return nil
}

// Clone returns a deep copy of the field
func (f *Field) Clone() *Field {
	c := *f
	if f.Categories != nil {
		c.Categories = make(map[string]int64, len(f.Categories))
		for k, v := range f.Categories {
			c.Categories[k] = v
		}
	}
	return &c
}

/*
CategoryList returns the categories of the field in ascending lexical
order. Every vector of counts indexed by category uses this order.
*/
func (f *Field) CategoryList() []string {
	cs := make([]string, 0, len(f.Categories))
	for c := range f.Categories {
		cs = append(cs, c)
	}
	sort.Strings(cs)
	return cs
}

/*
MostCommonCategory returns the category with the highest count. Ties go
to the category that comes first in lexical order.
*/
func (f *Field) MostCommonCategory() string {
	var best string
	var bestCount int64 = -1
	for _, c := range f.CategoryList() {
		if f.Categories[c] > bestCount {
			best = c
			bestCount = f.Categories[c]
		}
	}
	return best
}

// Mean returns the mean of the values of a numeric field
func (f *Field) Mean() float64 {
	if f.Count == 0 {
		return 0
	}
	return f.Sum / float64(f.Count)
}
