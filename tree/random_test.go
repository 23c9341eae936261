package tree_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/ashenfad/hadooptree/tree/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const randomTrees = 200

func randomCategories(rnd *rand.Rand, prefix string) map[string]int64 {
	cats := make(map[string]int64)
	for i, n := 0, 1+rnd.Intn(4); i < n; i++ {
		cats[fmt.Sprintf("%s%d", prefix, i)] = 1 + rnd.Int63n(50)
	}
	return cats
}

// randomTree grows a tree with random splits and leaves over random
// numeric and categorical fields, the last of which is the objective.
// Thresholds are always drawn inside the range of the node they split.
func randomTree(t *testing.T, rnd *rand.Rand) *tree.Tree {
	var fields []*feature.Field
	for i, n := 0, 1+rnd.Intn(4); i < n; i++ {
		if rnd.Intn(2) == 0 {
			min := rnd.Float64()*20 - 10
			fields = append(fields, feature.NewNumericField(i, min, min+rnd.Float64()*20, 0, 1))
		} else {
			fields = append(fields, feature.NewCategoricalField(i, randomCategories(rnd, "c")))
		}
	}
	objective := len(fields)
	fields = append(fields, feature.NewCategoricalField(objective, randomCategories(rnd, "k")))
	tr, err := tree.New(fields, objective)
	require.NoError(t, err)

	for step := rnd.Intn(40); step > 0; step-- {
		frontier := tr.Frontier()
		if len(frontier) == 0 {
			break
		}
		n := frontier[rnd.Intn(len(frontier))]
		if rnd.Intn(4) == 0 {
			require.NoError(t, tr.MarkLeaf(n.ID))
			continue
		}
		f := rnd.Intn(objective)
		var s *tree.Split
		if fields[f].IsNumeric() {
			low, high, err := tr.Range(n.ID, f)
			require.NoError(t, err)
			s = tree.NewThreshold(f, low+rnd.Float64()*(high-low))
		} else {
			cats := fields[f].CategoryList()
			s = tree.NewEquality(f, cats[rnd.Intn(len(cats))])
		}
		trueCounts, falseCounts := tree.ClassCounts{}, tree.ClassCounts{}
		for _, c := range n.Counts.Categories() {
			total := n.Counts[c]
			k := rnd.Int63n(total + 1)
			trueCounts[c] = k
			falseCounts[c] = total - k
		}
		_, _, err = tr.AddSplit(n.ID, s, trueCounts, falseCounts)
		require.NoError(t, err)
	}
	return tr
}

// randomInstance draws values around the range of each numeric field
// and, sometimes, categories no split knows about
func randomInstance(rnd *rand.Rand, fields []*feature.Field) feature.Instance {
	inst := make(feature.Instance, len(fields))
	for i, f := range fields {
		if f.IsNumeric() {
			inst[i] = f.Min - 1 + rnd.Float64()*(f.Max-f.Min+2)
			continue
		}
		cats := f.CategoryList()
		if rnd.Intn(5) == 0 {
			inst[i] = "unseen"
		} else {
			inst[i] = cats[rnd.Intn(len(cats))]
		}
	}
	return inst
}

func TestRandomTreesRoundTrip(t *testing.T) {
	for seed := int64(0); seed < randomTrees; seed++ {
		tr := randomTree(t, rand.New(rand.NewSource(seed)))
		doc, err := json.Encode(tr)
		require.NoError(t, err, "seed %d", seed)
		decoded, err := json.Decode(doc)
		require.NoError(t, err, "seed %d", seed)
		assert.True(t, tree.Equal(decoded, tr), "seed %d: %s", seed, doc)
	}
}

func TestRandomInstancesRouteToNodesWithoutSplit(t *testing.T) {
	for seed := int64(0); seed < randomTrees; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		tr := randomTree(t, rnd)
		for i := 0; i < 20; i++ {
			inst := randomInstance(rnd, tr.Fields)
			n, err := tr.Route(inst)
			require.NoError(t, err, "seed %d", seed)
			assert.Nil(t, n.Split, "seed %d: instance %v routed to node %d", seed, inst, n.ID)
			assert.NotEqual(t, tree.Internal, n.State, "seed %d", seed)
			for f, field := range tr.Fields {
				v, ok := inst.Number(f)
				if !ok || v < field.Min || v > field.Max {
					continue
				}
				low, high, err := tr.Range(n.ID, f)
				require.NoError(t, err)
				assert.True(t, low <= v && v <= high, "seed %d: %v outside [%v, %v] of node %d", seed, v, low, high, n.ID)
			}
		}
	}
}

func TestRandomTreesChildRangesNest(t *testing.T) {
	for seed := int64(0); seed < randomTrees; seed++ {
		tr := randomTree(t, rand.New(rand.NewSource(seed)))
		for _, n := range tr.Nodes() {
			if n.State != tree.Internal {
				continue
			}
			for f, field := range tr.Fields {
				if !field.IsNumeric() {
					continue
				}
				low, high, err := tr.Range(n.ID, f)
				require.NoError(t, err)
				for _, c := range []tree.NodeID{n.TrueChild, n.FalseChild} {
					cl, ch, err := tr.Range(c, f)
					require.NoError(t, err)
					assert.True(t, low <= cl && cl <= ch && ch <= high,
						"seed %d: range [%v, %v] of node %d not inside [%v, %v] of its parent %d", seed, cl, ch, c, low, high, n.ID)
				}
			}
		}
	}
}
