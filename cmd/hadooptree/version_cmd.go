package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in hadooptree's version
	VersionMajor = 0
	// VersionMinor is the minor number in hadooptree's version
	VersionMinor = 1
	// VersionPatch is the patch number in hadooptree's version
	VersionPatch = 0
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hadooptree",
		Long:  `All software has versions. This is hadooptree's`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hadooptree v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
