package json

import (
	"testing"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldRoundTrip(t *testing.T) {
	for _, f := range []*feature.Field{
		feature.NewNumericField(0, -3, 8.5, 12, 4),
		feature.NewCategoricalField(1, map[string]int64{"b": 2, "a": 5}),
	} {
		doc, err := EncodeField(f)
		require.NoError(t, err)
		decoded, err := DecodeField(doc)
		require.NoError(t, err)
		assert.Equal(t, f, decoded)
	}
}

func TestCategoriesInLexicalOrder(t *testing.T) {
	doc, err := EncodeField(feature.NewCategoricalField(3, map[string]int64{"b": 2, "a": 5}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":3,"isCategorical":true,"count":7,"categories":[{"value":"a","count":5},{"value":"b","count":2}]}`, string(doc))
}

func TestUndefinedFieldIsCategorical(t *testing.T) {
	doc, err := EncodeField(feature.NewField(2))
	require.NoError(t, err)
	f, err := DecodeField(doc)
	require.NoError(t, err)
	assert.True(t, f.IsCategorical())
	assert.Empty(t, f.Categories)
}

func TestDecodeInconsistentField(t *testing.T) {
	for _, doc := range []string{
		`{"index":-1,"isCategorical":true}`,
		`{"index":0,"isCategorical":true,"minValue":1}`,
		`{"index":0,"isCategorical":false,"categories":[{"value":"a","count":1}]}`,
		`{"index":0,"isCategorical":false,"minValue":1}`,
		`{"index":0,"isCategorical":true,"categories":[{"value":"a","count":1},{"value":"a","count":2}]}`,
		`[`,
	} {
		_, err := DecodeField([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestToFields(t *testing.T) {
	docs := FromFields([]*feature.Field{
		feature.NewCategoricalField(1, map[string]int64{"x": 1}),
		feature.NewNumericField(0, 0, 1, 1, 2),
	})
	fields, err := ToFields(docs)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, 0, fields[0].Index)
	assert.Equal(t, 1, fields[1].Index)

	_, err = ToFields(docs[:1])
	assert.Error(t, err)
}
