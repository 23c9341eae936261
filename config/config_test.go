package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSplitFloor(t *testing.T) {
	_, err := Load(viper.New())
	assert.Equal(t, ErrSplitFloorRequired, err)
	assert.Equal(t, ErrSplitFloorRequired, Default().Validate())
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	v.Set(SplitFloorKey, 10)
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.SplitFloor)
	assert.Equal(t, int64(DefaultSubtreeFloor), c.SubtreeFloor)
	assert.Equal(t, DefaultNumericSplits, c.NumericSplits)
	assert.Equal(t, DefaultLeafSubtreeRatio, c.LeafSubtreeRatio)
	assert.True(t, c.Workers > 0)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set(SplitFloorKey, 0)
	v.Set(SubtreeFloorKey, 100)
	v.Set(NumericSplitsKey, 16)
	v.Set(LeafSubtreeRatioKey, 0.25)
	v.Set(WorkersKey, 3)
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Config{SplitFloor: 0, SubtreeFloor: 100, NumericSplits: 16, LeafSubtreeRatio: 0.25, Workers: 3}, c)
}

func TestLoadInvalid(t *testing.T) {
	for key, value := range map[string]interface{}{
		SplitFloorKey:       -3,
		SubtreeFloorKey:     -1,
		NumericSplitsKey:    0,
		LeafSubtreeRatioKey: -0.5,
		WorkersKey:          0,
	} {
		v := viper.New()
		v.Set(SplitFloorKey, 1)
		v.Set(key, value)
		_, err := Load(v)
		assert.Error(t, err, key)
		assert.NotEqual(t, ErrSplitFloorRequired, err, key)
	}
}

func TestNewViper(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "hadooptree.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte("split-floor: 5\nnumeric-splits: 20\n"), 0644))
	t.Setenv("HADOOPTREE_SUBTREE_FLOOR", "300")

	v, err := NewViper(file)
	require.NoError(t, err)
	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.SplitFloor)
	assert.Equal(t, 20, c.NumericSplits)
	assert.Equal(t, int64(300), c.SubtreeFloor)

	_, err = NewViper(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
