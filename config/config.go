/*
Package config holds the tuning knobs of a tree build and loads them from
flags, environment variables and configuration files.
*/
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// DefaultSubtreeFloor is the node size below which subtrees are grown
	// locally
	DefaultSubtreeFloor = 15000
	// DefaultNumericSplits is the number of candidate thresholds tried on a
	// numeric field during distributed selection
	DefaultNumericSplits = 10000
	// DefaultLeafSubtreeRatio is the share of settled instances, on leaves
	// or below-floor nodes, over active instances that triggers a subtree
	// phase
	DefaultLeafSubtreeRatio = 0.5

	// UnsetSplitFloor marks a split floor that has not been configured
	UnsetSplitFloor int64 = -1
)

// Keys under which the knobs are looked up by Load
const (
	SplitFloorKey       = "split-floor"
	SubtreeFloorKey     = "subtree-floor"
	NumericSplitsKey    = "numeric-splits"
	LeafSubtreeRatioKey = "leaf-subtree-ratio"
	WorkersKey          = "workers"
)

/*
ErrSplitFloorRequired is returned when no split floor has been
configured. The split floor has no default and must always be given.
*/
var ErrSplitFloorRequired = errors.New("split floor is required")

/*
Config holds the knobs that tune how a tree is grown.
*/
type Config struct {
	// SplitFloor is the number of instances each side of a split must
	// exceed for the split to be considered
	SplitFloor int64
	// SubtreeFloor is the node size below which nodes stop being split
	// through distributed selection and get their subtree grown locally
	SubtreeFloor int64
	// NumericSplits is the number of candidate thresholds tried on a
	// numeric field during distributed selection
	NumericSplits int
	// LeafSubtreeRatio triggers a subtree phase when the instances on
	// frontier nodes below the subtree floor exceed this share of the
	// active instances
	LeafSubtreeRatio float64
	// Workers is the number of workers running each job
	Workers int
}

// Default returns a Config with every knob at its default value and no
// split floor
func Default() Config {
	return Config{
		SplitFloor:       UnsetSplitFloor,
		SubtreeFloor:     DefaultSubtreeFloor,
		NumericSplits:    DefaultNumericSplits,
		LeafSubtreeRatio: DefaultLeafSubtreeRatio,
		Workers:          runtime.NumCPU(),
	}
}

// Validate returns an error if any knob has an invalid value, wrapping
// ErrSplitFloorRequired if the split floor has not been set.
func (c Config) Validate() error {
	if c.SplitFloor == UnsetSplitFloor {
		return ErrSplitFloorRequired
	}
	if c.SplitFloor < 0 {
		return fmt.Errorf("split floor must not be negative, got %d", c.SplitFloor)
	}
	if c.SubtreeFloor < 0 {
		return fmt.Errorf("subtree floor must not be negative, got %d", c.SubtreeFloor)
	}
	if c.NumericSplits < 1 {
		return fmt.Errorf("numeric splits must be positive, got %d", c.NumericSplits)
	}
	if c.LeafSubtreeRatio < 0 {
		return fmt.Errorf("leaf subtree ratio must not be negative, got %v", c.LeafSubtreeRatio)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

/*
NewViper returns a viper instance that reads the knobs from environment
variables prefixed with HADOOPTREE_, with dashes in keys replaced by
underscores (HADOOPTREE_SPLIT_FLOOR for split-floor), and from the given
configuration file if not empty.
*/
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("hadooptree")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}
	return v, nil
}

/*
Load takes a viper instance and returns the Config it describes, with
defaults for the knobs it does not set. It returns ErrSplitFloorRequired
if the split floor is not set, or another error if the resulting Config
is not valid.
*/
func Load(v *viper.Viper) (Config, error) {
	c := Default()
	if !v.IsSet(SplitFloorKey) {
		return c, ErrSplitFloorRequired
	}
	c.SplitFloor = v.GetInt64(SplitFloorKey)
	if v.IsSet(SubtreeFloorKey) {
		c.SubtreeFloor = v.GetInt64(SubtreeFloorKey)
	}
	if v.IsSet(NumericSplitsKey) {
		c.NumericSplits = v.GetInt(NumericSplitsKey)
	}
	if v.IsSet(LeafSubtreeRatioKey) {
		c.LeafSubtreeRatio = v.GetFloat64(LeafSubtreeRatioKey)
	}
	if v.IsSet(WorkersKey) {
		c.Workers = v.GetInt(WorkersKey)
	}
	return c, c.Validate()
}
