package dot

import (
	"bytes"
	"testing"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	fields := []*feature.Field{
		feature.NewNumericField(0, 1, 10, 30, 6),
		feature.NewCategoricalField(1, map[string]int64{"x": 4, "y": 2}),
	}
	tr, err := tree.New(fields, 1)
	require.NoError(t, err)
	trueID, falseID, err := tr.AddSplit(tr.RootID, tree.NewThreshold(0, 2.5), tree.ClassCounts{"x": 4, "y": 0}, tree.ClassCounts{"x": 0, "y": 2})
	require.NoError(t, err)
	require.NoError(t, tr.MarkLeaf(trueID))

	g, err := Graph(tr)
	require.NoError(t, err)
	assert.Len(t, g.Nodes.Nodes, 3)
	assert.Len(t, g.Edges.Edges, 2)
	assert.Equal(t, "rounded", g.Nodes.Lookup[nodeName(trueID)].Attrs["style"])
	assert.Equal(t, "rounded", g.Nodes.Lookup[nodeName(falseID)].Attrs["style"])
	_, styled := g.Nodes.Lookup[nodeName(tr.RootID)].Attrs["style"]
	assert.False(t, styled)

	var buf bytes.Buffer
	require.NoError(t, Write(tr, &buf))
	out := buf.String()
	assert.Contains(t, out, "digraph tree")
	assert.Contains(t, out, "n0->n1")
	assert.Contains(t, out, `"field 0 <= 2.5"`)
	assert.Contains(t, out, `"not field 0 <= 2.5"`)
	assert.Contains(t, out, `[1] leaf: x`)
	assert.Contains(t, out, `[2] frontier: y`)
}
