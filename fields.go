package hadooptree

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	fjson "github.com/ashenfad/hadooptree/feature/json"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/pkg/errors"
)

const widthKey = "width"

// CollectFields takes a context, a runner and a dataset and runs a job
// collecting the statistics of every field of the dataset. Rows must
// all have the same number of tokens and no field may hold both numbers
// and categories. Blank rows are skipped. It returns the fields ordered
// by index.
func CollectFields(ctx context.Context, runner *mapreduce.Runner, ds dataset.Dataset) ([]*feature.Field, error) {
	out, err := runner.Run(ctx, mapreduce.Job{
		Name:    "define-fields",
		Input:   ds,
		Mapper:  mapreduce.MapperFunc(mapFieldTokens),
		Reducer: mapreduce.ReducerFunc(reduceFieldTokens),
	})
	if err != nil {
		return nil, err
	}
	width := -1
	byIndex := make(map[int]*feature.Field)
	for _, kv := range out {
		if kv.Key == widthKey {
			if width, err = strconv.Atoi(kv.Value); err != nil {
				return nil, errors.Wrap(err, "parsing row width")
			}
			continue
		}
		f, err := fjson.DecodeField([]byte(kv.Value))
		if err != nil {
			return nil, err
		}
		byIndex[f.Index] = f
	}
	if width < 0 {
		return nil, fmt.Errorf("collecting fields: dataset has no rows")
	}
	fields := make([]*feature.Field, width)
	for i := range fields {
		if f, ok := byIndex[i]; ok {
			fields[i] = f
		} else {
			fields[i] = feature.NewField(i)
		}
	}
	return fields, nil
}

func mapFieldTokens(ctx context.Context, row string, emit mapreduce.Emitter) error {
	if feature.IsBlank(row) {
		return nil
	}
	tokens := strings.Split(row, ",")
	if err := emit(widthKey, strconv.Itoa(len(tokens))); err != nil {
		return err
	}
	for i, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if err := emit(fmt.Sprintf("field:%d", i), t); err != nil {
			return err
		}
	}
	return nil
}

func reduceFieldTokens(ctx context.Context, key string, values []string, emit mapreduce.Emitter) error {
	if key == widthKey {
		for _, v := range values[1:] {
			if v != values[0] {
				return errors.Wrapf(feature.ErrMalformedInstance, "rows with %s and %s tokens", values[0], v)
			}
		}
		return emit(key, values[0])
	}
	index, err := strconv.Atoi(strings.TrimPrefix(key, "field:"))
	if err != nil {
		return errors.Wrapf(err, "parsing field key %q", key)
	}
	f := feature.NewField(index)
	for _, v := range values {
		if err = f.Add(v); err != nil {
			return err
		}
	}
	doc, err := fjson.EncodeField(f)
	if err != nil {
		return err
	}
	return emit(key, string(doc))
}
