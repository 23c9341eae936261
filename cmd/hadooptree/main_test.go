package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/ashenfad/hadooptree/tree/json"
	"github.com/ashenfad/hadooptree/tree/redisstore"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/redis.v5"
)

func TestPredict(t *testing.T) {
	fields := []*feature.Field{
		feature.NewNumericField(0, 1, 4, 10, 4),
		feature.NewCategoricalField(1, map[string]int64{"x": 3, "y": 1}),
	}
	tr, err := tree.New(fields, 1)
	require.NoError(t, err)
	_, _, err = tr.AddSplit(tr.RootID, tree.NewThreshold(0, 2.5), tree.ClassCounts{"x": 2, "y": 1}, tree.ClassCounts{"x": 0, "y": 0})
	require.NoError(t, err)

	var out bytes.Buffer
	in := bufio.NewScanner(strings.NewReader("1,x\n\n3,y\n"))
	require.NoError(t, predict(tr, in, &out))
	assert.Equal(t, "x 0.6667 [x:0.6667 y:0.3333]\n?\n", out.String())

	assert.Error(t, predict(tr, bufio.NewScanner(strings.NewReader("one,x\n")), &out))
}

func TestInputValidate(t *testing.T) {
	for _, ic := range []*inputConfig{
		{},
		{input: []string{"iris.db"}},
		{input: []string{"postgresql://localhost/iris"}},
		{input: []string{"mongodb://localhost/iris"}, collection: "iris"},
	} {
		assert.Error(t, ic.Validate(), "%v", ic.input)
	}
	for _, ic := range []*inputConfig{
		{input: []string{"a.csv", "b.csv"}},
		{input: []string{"iris.db"}, query: "SELECT * FROM iris"},
		{input: []string{"mongodb://localhost/iris"}, collection: "iris", columns: []string{"species"}},
	} {
		assert.NoError(t, ic.Validate(), "%v", ic.input)
	}
}

func TestInputDataset(t *testing.T) {
	dir, err := ioutil.TempDir("", "input")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "part-00000")
	require.NoError(t, ioutil.WriteFile(file, []byte("1,x\n2,y\n"), 0644))
	log, _ := test.NewNullLogger()

	for _, input := range [][]string{{dir}, {file}, {file, file}} {
		ic := &inputConfig{input: input}
		ds, err := ic.dataset(log)
		require.NoError(t, err, "%v", input)
		n, err := dataset.Count(context.Background(), ds)
		require.NoError(t, err)
		assert.Equal(t, int64(2*len(input)), n, "%v", input)
		assert.NoError(t, ic.Close())
	}

	ic := &inputConfig{input: []string{filepath.Join(dir, "iris.db")}, query: "SELECT 1, 'x'"}
	ds, err := ic.dataset(log)
	require.NoError(t, err)
	n, err := dataset.Count(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, ic.closers, 1)
	assert.NoError(t, ic.Close())
	assert.Empty(t, ic.closers)

	_, err = (&inputConfig{input: []string{filepath.Join(dir, "missing")}}).dataset(log)
	assert.Error(t, err)
}

func TestSplitDataset(t *testing.T) {
	var records []string
	for i := 0; i < 200; i++ {
		records = append(records, fmt.Sprintf("%d,x", i))
	}
	records = append(records, " ")
	for _, tc := range []struct {
		probability  int
		kept, splits int64
	}{
		{0, 200, 0},
		{100, 0, 200},
	} {
		var out, splitOut bytes.Buffer
		kept, split, err := splitDataset(context.Background(), dataset.Lines(records, 3), rand.New(rand.NewSource(1)), tc.probability, &out, &splitOut)
		require.NoError(t, err)
		assert.Equal(t, tc.kept, kept)
		assert.Equal(t, tc.splits, split)
		assert.Equal(t, int(kept), strings.Count(out.String(), "\n"))
		assert.Equal(t, int(split), strings.Count(splitOut.String(), "\n"))
	}

	var out, splitOut bytes.Buffer
	kept, split, err := splitDataset(context.Background(), dataset.Lines(records, 3), rand.New(rand.NewSource(7)), 50, &out, &splitOut)
	require.NoError(t, err)
	assert.Equal(t, int64(200), kept+split)
	assert.True(t, kept > 0 && split > 0)
	assert.Contains(t, out.String()+splitOut.String(), "199,x\n")
}

func TestSnapshotVersion(t *testing.T) {
	ctx := context.Background()
	tr, err := tree.New([]*feature.Field{
		feature.NewNumericField(0, 0, 1, 1, 2),
		feature.NewCategoricalField(1, map[string]int64{"x": 1, "y": 1}),
	}, 1)
	require.NoError(t, err)

	_, ok, err := snapshotVersion(ctx, tree.NewMemoryStore(json.NewCodec()))
	require.NoError(t, err)
	assert.False(t, ok)

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	store := redisstore.New(rc, "hadooptree:run", json.NewCodec())
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Publish(ctx, tr))
	}
	v, ok, err := snapshotVersion(ctx, store)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)
}
