package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashenfad/hadooptree/feature"
)

/*
Prediction represents a prediction made by a classification Tree: the
probability of every category of the objective field according to the
training instances that reached the node the prediction was made at.
*/
type Prediction struct {
	class         string
	probabilities map[string]float64
	weight        int64
}

// PredictionError represents an error related with predictions
type PredictionError string

/*
ErrCannotPredictFromSample is the error returned by the Predict method of a tree
when the prediction cannot be made because no training instance reached the
node the sample is routed to.
*/
const ErrCannotPredictFromSample = PredictionError("no prediction available for this kind of sample")

/*
ErrCannotPredictFromEmptyCounts is the error returned when trying to build a
prediction from counts that add up to zero.
*/
const ErrCannotPredictFromEmptyCounts = PredictionError("cannot make prediction from empty counts")

func (pe PredictionError) Error() string {
	return string(pe)
}

/*
NewPrediction takes the class counts of a node and returns the prediction
they support, or ErrCannotPredictFromEmptyCounts if they add up to zero.
*/
func NewPrediction(counts ClassCounts) (*Prediction, error) {
	total := counts.Total()
	if total == 0 {
		return nil, ErrCannotPredictFromEmptyCounts
	}
	probs := make(map[string]float64, len(counts))
	for c, n := range counts {
		probs[c] = float64(n) / float64(total)
	}
	return &Prediction{class: counts.Majority(), probabilities: probs, weight: total}, nil
}

/*
ProbabilityOf takes a category and returns its probability according to
the prediction.
*/
func (p *Prediction) ProbabilityOf(category string) float64 {
	return p.probabilities[category]
}

/*
Probabilities returns a map of category to float64 containing
the probabilities of each category
*/
func (p *Prediction) Probabilities() map[string]float64 {
	return p.probabilities
}

/*
Weight returns the weight of the prediction: the number of training
instances from which the prediction was made
*/
func (p *Prediction) Weight() int64 {
	return p.weight
}

/*
PredictedValue returns the most probable category and its probability.
Ties go to the category that comes first in lexical order.
*/
func (p *Prediction) PredictedValue() (string, float64) {
	return p.class, p.probabilities[p.class]
}

func (p *Prediction) String() string {
	cs := make([]string, 0, len(p.probabilities))
	for c := range p.probabilities {
		cs = append(cs, c)
	}
	sort.Strings(cs)
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, fmt.Sprintf("%s:%.4f", c, p.probabilities[c]))
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}

// Predict takes an instance and returns the prediction of the node it is
// routed to, or ErrCannotPredictFromSample if that node was reached by
// no training instance.
func (t *Tree) Predict(inst feature.Instance) (*Prediction, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tree cannot predict instances")
	}
	n, err := t.Route(inst)
	if err != nil {
		return nil, err
	}
	p, err := NewPrediction(n.Counts)
	if err == ErrCannotPredictFromEmptyCounts {
		return nil, ErrCannotPredictFromSample
	}
	return p, err
}
