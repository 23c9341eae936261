/*
Package yaml provides methods to write the statistics collected for
feature.Field values to YAML documents and to parse them back, so that
the statistics of a dataset can be reviewed or reused by later builds.
*/
package yaml

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

type document struct {
	Fields []field `yaml:"fields"`
}

type field struct {
	Index      int              `yaml:"index"`
	Type       string           `yaml:"type"`
	Count      int64            `yaml:"count"`
	Categories map[string]int64 `yaml:"categories,omitempty"`
	Min        *float64         `yaml:"min,omitempty"`
	Max        *float64         `yaml:"max,omitempty"`
	Sum        *float64         `yaml:"sum,omitempty"`
}

/*
ReadFields takes a slice of bytes with field statistics in YAML and
returns the fields parsed from it ordered by index, or an error.
The YAML is expected to be an object with a fields property holding a
list of objects, each with an index, a type of either 'categorical' or
'numeric', a count and then either a categories map from category to
count or min, max and sum values.
*/
func ReadFields(md []byte) ([]*feature.Field, error) {
	doc := &document{}
	err := yaml.Unmarshal(md, doc)
	if err != nil {
		return nil, errors.Wrap(err, "parsing yml fields")
	}
	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("yml document has no field information")
	}
	fields := make([]*feature.Field, 0, len(doc.Fields))
	for _, yf := range doc.Fields {
		switch yf.Type {
		case "categorical":
			f := feature.NewCategoricalField(yf.Index, yf.Categories)
			f.Count = yf.Count
			fields = append(fields, f)
		case "numeric":
			if yf.Min == nil || yf.Max == nil {
				return nil, fmt.Errorf("numeric field %d has no min or max", yf.Index)
			}
			var sum float64
			if yf.Sum != nil {
				sum = *yf.Sum
			}
			fields = append(fields, feature.NewNumericField(yf.Index, *yf.Min, *yf.Max, sum, yf.Count))
		default:
			return nil, fmt.Errorf("invalid type %q for field %d", yf.Type, yf.Index)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Index < fields[j].Index })
	for i, f := range fields {
		if f.Index != i {
			return nil, fmt.Errorf("expected field with index %d, got %d", i, f.Index)
		}
	}
	return fields, nil
}

/*
ReadFieldsFromFile takes a filepath string, reads its contents and uses
ReadFields to parse it and return a slice of parsed fields or an error.
*/
func ReadFieldsFromFile(filepath string) ([]*feature.Field, error) {
	md, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading fields yml file %s", filepath)
	}
	fields, err := ReadFields(md)
	if err != nil {
		err = errors.Wrapf(err, "parsing fields yml file %s", filepath)
	}
	return fields, err
}

// WriteFields returns the YAML document for the given fields
func WriteFields(fields []*feature.Field) ([]byte, error) {
	doc := document{Fields: make([]field, 0, len(fields))}
	for _, f := range fields {
		yf := field{Index: f.Index, Count: f.Count}
		if f.IsNumeric() {
			min, max, sum := f.Min, f.Max, f.Sum
			yf.Type = "numeric"
			yf.Min, yf.Max, yf.Sum = &min, &max, &sum
		} else {
			yf.Type = "categorical"
			yf.Categories = f.Categories
			if yf.Categories == nil {
				yf.Categories = map[string]int64{}
			}
		}
		doc.Fields = append(doc.Fields, yf)
	}
	return yaml.Marshal(doc)
}

// WriteFieldsToFile writes the YAML document for the given fields to a file
func WriteFieldsToFile(filepath string, fields []*feature.Field) error {
	md, err := WriteFields(fields)
	if err != nil {
		return errors.Wrap(err, "encoding fields as yml")
	}
	return errors.Wrapf(ioutil.WriteFile(filepath, md, 0644), "writing fields yml file %s", filepath)
}
