package tree

import (
	"context"
	"fmt"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/pkg/errors"
)

/*
Evaluation holds the outcome of checking the predictions of a tree
against a labeled dataset.
*/
type Evaluation struct {
	Correct int64
	Total   int64
}

// Accuracy returns the percentage of correct predictions
func (e *Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total) * 100
}

func (e *Evaluation) String() string {
	return fmt.Sprintf("%d/%d --- %v%%", e.Correct, e.Total, e.Accuracy())
}

/*
Evaluate takes a context, a tree and a labeled dataset, routes every
instance of the dataset through the tree and compares the majority
category of the node it lands on with its objective value. Blank rows
are skipped. It returns the number of correct predictions over the number
of instances, or an error if a row cannot be parsed.
*/
func Evaluate(ctx context.Context, t *Tree, ds dataset.Dataset) (*Evaluation, error) {
	shards, err := ds.Shards(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating tree")
	}
	e := &Evaluation{}
	for _, s := range shards {
		err = s.Scan(ctx, func(row string) error {
			if feature.IsBlank(row) {
				return nil
			}
			inst, err := feature.ParseInstance(row, t.Fields)
			if err != nil {
				return err
			}
			n, err := t.Route(inst)
			if err != nil {
				return err
			}
			actual, _ := inst.Category(t.Objective)
			if n.PredictedClass() == actual {
				e.Correct++
			}
			e.Total++
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating tree on shard %s", s.Name())
		}
	}
	return e, nil
}
