/*
Package json encodes feature.Field statistics into JSON documents and
decodes them back.
*/
package json

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/pkg/errors"
)

/*
Field is the JSON document for a feature.Field. Categorical fields list
their categories in lexical order with their counts; numeric fields
carry their minimum and maximum values and their sum.
*/
type Field struct {
	Index         int        `json:"index"`
	IsCategorical bool       `json:"isCategorical"`
	Count         int64      `json:"count"`
	Categories    []Category `json:"categories,omitempty"`
	MinValue      *float64   `json:"minValue,omitempty"`
	MaxValue      *float64   `json:"maxValue,omitempty"`
	Sum           *float64   `json:"sum,omitempty"`
}

// Category is a category of a categorical field with its count
type Category struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

/*
FromField takes a feature.Field and returns its document. Fields that
have not seen any value are encoded as categorical fields with no
categories.
*/
func FromField(f *feature.Field) *Field {
	jf := &Field{Index: f.Index, Count: f.Count, IsCategorical: !f.IsNumeric()}
	if f.IsNumeric() {
		min, max, sum := f.Min, f.Max, f.Sum
		jf.MinValue, jf.MaxValue, jf.Sum = &min, &max, &sum
		return jf
	}
	for _, c := range f.CategoryList() {
		jf.Categories = append(jf.Categories, Category{c, f.Categories[c]})
	}
	return jf
}

/*
Field returns the feature.Field for the document or an error if the
document is inconsistent.
*/
func (jf *Field) Field() (*feature.Field, error) {
	if jf.Index < 0 {
		return nil, fmt.Errorf("field has negative index %d", jf.Index)
	}
	if jf.IsCategorical {
		if jf.MinValue != nil || jf.MaxValue != nil || jf.Sum != nil {
			return nil, fmt.Errorf("categorical field %d has numeric statistics", jf.Index)
		}
		categories := make(map[string]int64, len(jf.Categories))
		for _, c := range jf.Categories {
			if _, ok := categories[c.Value]; ok {
				return nil, fmt.Errorf("categorical field %d has duplicate category %q", jf.Index, c.Value)
			}
			categories[c.Value] = c.Count
		}
		f := feature.NewCategoricalField(jf.Index, categories)
		f.Count = jf.Count
		return f, nil
	}
	if len(jf.Categories) > 0 {
		return nil, fmt.Errorf("numeric field %d has categories", jf.Index)
	}
	if jf.MinValue == nil || jf.MaxValue == nil {
		return nil, fmt.Errorf("numeric field %d has no range", jf.Index)
	}
	var sum float64
	if jf.Sum != nil {
		sum = *jf.Sum
	}
	return feature.NewNumericField(jf.Index, *jf.MinValue, *jf.MaxValue, sum, jf.Count), nil
}

// EncodeField returns the JSON document for the given field
func EncodeField(f *feature.Field) ([]byte, error) {
	return json.Marshal(FromField(f))
}

// DecodeField parses a JSON document into a field
func DecodeField(data []byte) (*feature.Field, error) {
	jf := &Field{}
	if err := json.Unmarshal(data, jf); err != nil {
		return nil, errors.Wrap(err, "parsing field document")
	}
	return jf.Field()
}

/*
FromFields takes a slice of fields and returns their documents.
*/
func FromFields(fields []*feature.Field) []*Field {
	result := make([]*Field, 0, len(fields))
	for _, f := range fields {
		result = append(result, FromField(f))
	}
	return result
}

/*
ToFields takes a slice of field documents and returns the fields they
describe ordered by index. Indexes must be exactly the positions
0 to n-1.
*/
func ToFields(docs []*Field) ([]*feature.Field, error) {
	fields := make([]*feature.Field, 0, len(docs))
	for _, d := range docs {
		f, err := d.Field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Index < fields[j].Index })
	for i, f := range fields {
		if f.Index != i {
			return nil, fmt.Errorf("expected field with index %d, got %d", i, f.Index)
		}
	}
	return fields, nil
}
