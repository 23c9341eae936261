package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/ashenfad/hadooptree/dataset"
	"github.com/ashenfad/hadooptree/feature"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type splitCmdConfig struct {
	*rootCmdConfig
	inputConfig
	output           string
	splitOutput      string
	splitProbability int
	seed             int64
}

func splitCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &splitCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a dataset into two datasets",
		Long:  `Split the instances of a dataset at random between an output dataset and a split dataset, for instance to hold out instances to evaluate a tree with`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := config.Validate(); err != nil {
				exit(1, err)
			}
			log := config.logger()
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			ds, err := config.dataset(log)
			if err != nil {
				exit(2, err)
			}
			defer config.inputConfig.Close()
			out := os.Stdout
			if config.output != "" {
				if out, err = os.Create(config.output); err != nil {
					exit(3, err)
				}
				defer out.Close()
			}
			splitOut, err := os.Create(config.splitOutput)
			if err != nil {
				exit(4, err)
			}
			defer splitOut.Close()
			seed := config.seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			kept, split, err := splitDataset(ctx, ds, rand.New(rand.NewSource(seed)), config.splitProbability, out, splitOut)
			if err != nil {
				exit(5, err)
			}
			log.WithFields(logrus.Fields{"kept": kept, "split": split}).Info("dataset split")
		},
	}
	config.addFlags(cmd.Flags())
	cmd.Flags().StringVarP(&(config.output), "output", "o", "", "path to a file to which the instances not split will be written (defaults to STDOUT)")
	cmd.Flags().StringVarP(&(config.splitOutput), "split-output", "s", "", "path to a file to which the split instances will be written (required)")
	cmd.Flags().IntVarP(&(config.splitProbability), "split-probability", "p", 20, "probability (0-100) of an instance being split")
	cmd.Flags().Int64Var(&(config.seed), "seed", 0, "seed for the random split (defaults to the current time)")
	return cmd
}

func (scc *splitCmdConfig) Validate() error {
	if err := scc.inputConfig.Validate(); err != nil {
		return err
	}
	if scc.splitOutput == "" {
		return fmt.Errorf("required split-output flag was not set")
	}
	if scc.splitProbability < 0 || scc.splitProbability > 100 {
		return fmt.Errorf("split probability must be between 0 and 100, got %d", scc.splitProbability)
	}
	return nil
}

// splitDataset writes every non-blank record of a dataset to either out or
// splitOut, the latter with the given probability percentage. It returns
// how many records went to each.
func splitDataset(ctx context.Context, ds dataset.Dataset, rnd *rand.Rand, probability int, out, splitOut io.Writer) (int64, int64, error) {
	shards, err := ds.Shards(ctx)
	if err != nil {
		return 0, 0, err
	}
	w, sw := bufio.NewWriter(out), bufio.NewWriter(splitOut)
	var kept, split int64
	for _, s := range shards {
		err = s.Scan(ctx, func(record string) error {
			if feature.IsBlank(record) {
				return nil
			}
			target := w
			if rnd.Intn(100) < probability {
				target = sw
				split++
			} else {
				kept++
			}
			_, err := fmt.Fprintln(target, record)
			return err
		})
		if err != nil {
			return 0, 0, err
		}
	}
	return kept, split, multierr.Append(w.Flush(), sw.Flush())
}
