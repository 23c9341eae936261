package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ashenfad/hadooptree/tree"
	"github.com/ashenfad/hadooptree/tree/json"
	"github.com/spf13/cobra"
)

type evaluateCmdConfig struct {
	*rootCmdConfig
	inputConfig
	treeInput string
}

func evaluateCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &evaluateCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the accuracy of a tree",
		Long:  `Evaluate the accuracy of a tree against a labeled dataset with the same fields it was grown from`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				exit(1, err)
			}
			log := config.logger()
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			t, err := loadTree(config.treeInput)
			if err != nil {
				exit(2, err)
			}
			ds, err := config.dataset(log)
			if err != nil {
				exit(3, err)
			}
			defer config.inputConfig.Close()
			log.Info("evaluating tree")
			e, err := tree.Evaluate(ctx, t, ds)
			if err != nil {
				exit(4, err)
			}
			fmt.Println(e)
		},
	}
	config.addFlags(cmd.Flags())
	cmd.Flags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree to evaluate will be read and parsed as JSON (required)")
	return cmd
}

func (ecc *evaluateCmdConfig) Validate() error {
	if ecc.treeInput == "" {
		return fmt.Errorf("required tree flag was not set")
	}
	return ecc.inputConfig.Validate()
}

func loadTree(filepath string) (*tree.Tree, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading tree in JSON from %s: %v", filepath, err)
	}
	defer f.Close()
	t, err := json.ReadTree(f)
	if err != nil {
		err = fmt.Errorf("parsing tree in JSON from %s: %v", filepath, err)
	}
	return t, err
}
