package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose    bool
	configFile string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hadooptree",
		Short: "hadooptree is a tool to grow classification trees on large datasets",
		Long:  `A tool to grow classification trees from sharded datasets too large to be processed in one place, evaluate them, and use them to make predictions`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log progress")
	rootCmd.PersistentFlags().StringVar(&(config.configFile), "config", "", "path to a YAML config file with the knobs to grow trees with")
	rootCmd.AddCommand(versionCmd(), buildCmd(config), fieldsCmd(config), evaluateCmd(config), showCmd(config), predictCmd(config), splitCmd(config))
	return rootCmd
}
