package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ashenfad/hadooptree/feature"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	treeInput string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the objective of instances read from STDIN",
		Long:  `Use a tree to predict the objective of the instances read from STDIN, one per line with every field of the dataset, the objective token being ignored`,
		Run: func(cmd *cobra.Command, args []string) {
			if config.treeInput == "" {
				exit(1, fmt.Errorf("required tree flag was not set"))
			}
			t, err := loadTree(config.treeInput)
			if err != nil {
				exit(2, err)
			}
			if err = predict(t, bufio.NewScanner(os.Stdin), os.Stdout); err != nil {
				exit(3, err)
			}
		},
	}
	cmd.Flags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree to use will be read and parsed as JSON (required)")
	return cmd
}

func predict(t *tree.Tree, s *bufio.Scanner, w io.Writer) error {
	for s.Scan() {
		row := s.Text()
		if feature.IsBlank(row) {
			continue
		}
		inst, err := feature.ParseInstance(row, t.Fields)
		if err != nil {
			return err
		}
		p, err := t.Predict(inst)
		if err == tree.ErrCannotPredictFromSample {
			if _, err = fmt.Fprintln(w, "?"); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		class, prob := p.PredictedValue()
		if _, err = fmt.Fprintf(w, "%s %.4f %v\n", class, prob, p); err != nil {
			return err
		}
	}
	return s.Err()
}
