package json

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grownTree(t *testing.T) *tree.Tree {
	fields := []*feature.Field{
		feature.NewNumericField(0, -1.5, 12.25, 30, 6),
		feature.NewCategoricalField(1, map[string]int64{"red": 4, "blue": 2}),
		feature.NewCategoricalField(2, map[string]int64{"yes": 4, "no": 2}),
	}
	tr, err := tree.New(fields, 2)
	require.NoError(t, err)
	a, b, err := tr.AddSplit(0, tree.NewThreshold(0, 0.1), tree.ClassCounts{"yes": 3, "no": 0}, tree.ClassCounts{"yes": 1, "no": 2})
	require.NoError(t, err)
	require.NoError(t, tr.MarkLeaf(a))
	_, _, err = tr.AddSplit(b, tree.NewEquality(1, "red"), tree.ClassCounts{"yes": 1, "no": 0}, tree.ClassCounts{"yes": 0, "no": 2})
	require.NoError(t, err)
	return tr
}

func TestRoundTrip(t *testing.T) {
	tr := grownTree(t)
	doc, err := Encode(tr)
	require.NoError(t, err)
	decoded, err := Decode(doc)
	require.NoError(t, err)
	assert.True(t, tree.Equal(tr, decoded))
	assert.Equal(t, tr.Len(), decoded.Len())
	assert.Equal(t, tree.NodeID(1), decoded.Node(3).Parent)

	again, err := Encode(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(again))

	buf := &bytes.Buffer{}
	require.NoError(t, WriteTree(tr, buf))
	read, err := ReadTree(buf)
	require.NoError(t, err)
	assert.True(t, tree.Equal(tr, read))
}

func TestDocumentShape(t *testing.T) {
	doc, err := Encode(grownTree(t))
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &raw))
	assert.Equal(t, 2.0, raw["objectiveFieldIndex"])
	assert.Len(t, raw["fields"], 3)
	root := raw["root"].(map[string]interface{})
	assert.Equal(t, 0.0, root["id"])
	assert.Equal(t, false, root["isLeaf"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"classCategory": "no", "count": 2.0},
		map[string]interface{}{"classCategory": "yes", "count": 4.0},
	}, root["classCounts"])
	assert.Equal(t, map[string]interface{}{"fieldId": 0.0, "isCategorical": false, "lessOrEqualTo": 0.1}, root["split"])
	leaf := root["trueChild"].(map[string]interface{})
	assert.Equal(t, true, leaf["isLeaf"])
	assert.NotContains(t, leaf, "split")
	inner := root["falseChild"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"fieldId": 1.0, "isCategorical": true, "equalTo": "red"}, inner["split"])
}

func TestDecodeCorruptDocument(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":          `{"root":`,
		"no root":           `{"objectiveFieldIndex":0,"fields":[{"index":0,"isCategorical":true}]}`,
		"numeric objective": `{"objectiveFieldIndex":0,"fields":[{"index":0,"isCategorical":false,"minValue":0,"maxValue":1}],"root":{"id":0,"isLeaf":false,"classCounts":[]}}`,
		"missing child":     `{"objectiveFieldIndex":1,"fields":[{"index":0,"isCategorical":true},{"index":1,"isCategorical":true}],"root":{"id":0,"isLeaf":false,"classCounts":[],"split":{"fieldId":0,"isCategorical":true,"equalTo":"a"},"trueChild":{"id":1,"isLeaf":true,"classCounts":[]}}}`,
		"duplicate ids":     `{"objectiveFieldIndex":1,"fields":[{"index":0,"isCategorical":true},{"index":1,"isCategorical":true}],"root":{"id":0,"isLeaf":false,"classCounts":[],"split":{"fieldId":0,"isCategorical":true,"equalTo":"a"},"trueChild":{"id":1,"isLeaf":true,"classCounts":[]},"falseChild":{"id":1,"isLeaf":true,"classCounts":[]}}}`,
	} {
		_, err := Decode([]byte(doc))
		require.Error(t, err, name)
		cde, ok := err.(*CorruptDocumentError)
		require.True(t, ok, name)
		assert.Equal(t, doc, cde.Content, name)
		assert.NotNil(t, errors.Cause(err), name)
	}
}

func TestSubtreeRoundTrip(t *testing.T) {
	st := &tree.Subtree{
		ID:     4,
		Counts: tree.ClassCounts{"yes": 2, "no": 1},
		Split:  tree.NewThreshold(0, 3.5),
		True:   &tree.Subtree{ID: tree.Unassigned, Counts: tree.ClassCounts{"yes": 2, "no": 0}},
		False:  &tree.Subtree{ID: tree.Unassigned, Counts: tree.ClassCounts{"yes": 0, "no": 1}},
	}
	doc, err := EncodeSubtree(st)
	require.NoError(t, err)
	decoded, err := DecodeSubtree(doc)
	require.NoError(t, err)
	assert.Equal(t, st, decoded)
	assert.Equal(t, tree.Unassigned, decoded.True.ID)

	_, err = DecodeSubtree([]byte(`{"id":4,"classCounts":[],"split":{"fieldId":0,"isCategorical":false,"lessOrEqualTo":1}}`))
	_, ok := err.(*CorruptDocumentError)
	assert.True(t, ok)
}

func TestCodec(t *testing.T) {
	store := tree.NewMemoryStore(NewCodec())
	tr := grownTree(t)
	require.NoError(t, store.Publish(context.Background(), tr))
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, tree.Equal(tr, loaded))
	assert.False(t, loaded == tr)
}
