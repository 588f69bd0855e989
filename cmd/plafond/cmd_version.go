package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plafond/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plafond %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
	},
}
