package main

import (
	"fmt"
	"os"

	"github.com/ashenfad/hadooptree/tree/dot"
	"github.com/ashenfad/hadooptree/tree/json"
	"github.com/spf13/cobra"
)

type showCmdConfig struct {
	*rootCmdConfig
	treeInput string
	format    string
}

func showCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &showCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a tree",
		Long:  `Show a tree as text, as its JSON document or as a Graphviz digraph`,
		Run: func(cmd *cobra.Command, args []string) {
			if config.treeInput == "" {
				exit(1, fmt.Errorf("required tree flag was not set"))
			}
			t, err := loadTree(config.treeInput)
			if err != nil {
				exit(2, err)
			}
			switch config.format {
			case "text":
				fmt.Print(t)
			case "json":
				err = json.WriteTree(t, os.Stdout)
			case "dot":
				err = dot.Write(t, os.Stdout)
			default:
				err = fmt.Errorf("unknown format %s", config.format)
			}
			if err != nil {
				exit(3, err)
			}
		},
	}
	cmd.Flags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file from which the tree to show will be read and parsed as JSON (required)")
	cmd.Flags().StringVar(&(config.format), "format", "text", "format to show the tree in: text, json or dot")
	return cmd
}
