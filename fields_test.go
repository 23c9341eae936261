package hadooptree

import (
	"context"
	"testing"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFields(t *testing.T) {
	runner := mapreduce.NewRunner(3, nil)
	fields, err := CollectFields(context.Background(), runner, dataset.Lines([]string{
		"1.5, red, ,yes",
		"",
		"3,blue,,no",
		"-2,red,,yes",
	}, 2))
	require.NoError(t, err)
	require.Len(t, fields, 4)

	assert.Equal(t, feature.Numeric, fields[0].Kind)
	assert.Equal(t, -2.0, fields[0].Min)
	assert.Equal(t, 3.0, fields[0].Max)
	assert.Equal(t, int64(3), fields[0].Count)

	assert.Equal(t, feature.Categorical, fields[1].Kind)
	assert.Equal(t, map[string]int64{"red": 2, "blue": 1}, fields[1].Categories)

	assert.False(t, fields[2].IsNumeric())
	assert.False(t, fields[2].IsCategorical())
	assert.Equal(t, 2, fields[2].Index)

	assert.Equal(t, map[string]int64{"yes": 2, "no": 1}, fields[3].Categories)
}

func TestCollectFieldsErrors(t *testing.T) {
	runner := mapreduce.NewRunner(2, nil)
	_, err := CollectFields(context.Background(), runner, dataset.Lines([]string{"1,a", "2,b,c"}, 2))
	assert.Equal(t, feature.ErrMalformedInstance, errors.Cause(err))

	_, err = CollectFields(context.Background(), runner, dataset.Lines([]string{"1,a", "b,2"}, 2))
	assert.Equal(t, feature.ErrTypeConflict, errors.Cause(err))

	_, err = CollectFields(context.Background(), runner, dataset.Lines([]string{"", " "}, 1))
	assert.Error(t, err)
}
