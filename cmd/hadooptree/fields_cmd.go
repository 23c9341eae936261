package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ashenfad/hadooptree"
	"github.com/ashenfad/hadooptree/config"
	"github.com/ashenfad/hadooptree/feature/yaml"
	"github.com/ashenfad/hadooptree/mapreduce"
	"github.com/spf13/cobra"
)

type fieldsCmdConfig struct {
	*rootCmdConfig
	inputConfig
	output  string
	workers int
}

func fieldsCmd(rootConfig *rootCmdConfig) *cobra.Command {
	cfg := &fieldsCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Collect the statistics of the fields of a dataset",
		Long:  `Collect the kind, categories and range of every field of a dataset and write them as YML, so builds on the dataset can skip collecting them`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := cfg.inputConfig.Validate(); err != nil {
				exit(1, err)
			}
			log := cfg.logger()
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			ds, err := cfg.dataset(log)
			if err != nil {
				exit(2, err)
			}
			defer cfg.inputConfig.Close()
			workers := cfg.workers
			if workers < 1 {
				workers = config.Default().Workers
			}
			fields, err := hadooptree.CollectFields(ctx, mapreduce.NewRunner(workers, log), ds)
			if err != nil {
				exit(3, fmt.Errorf("collecting fields: %v", err))
			}
			log.WithField("fields", len(fields)).Info("fields collected")
			if cfg.output == "" {
				out, err := yaml.WriteFields(fields)
				if err != nil {
					exit(4, err)
				}
				os.Stdout.Write(out)
				return
			}
			if err = yaml.WriteFieldsToFile(cfg.output, fields); err != nil {
				exit(4, err)
			}
		},
	}
	cfg.addFlags(cmd.Flags())
	cmd.Flags().StringVarP(&(cfg.output), "output", "o", "", "path to a file to which the statistics will be written in YML format (defaults to STDOUT)")
	cmd.Flags().IntVar(&(cfg.workers), "workers", 0, "number of workers collecting statistics (defaults to the number of CPUs)")
	return cmd
}
