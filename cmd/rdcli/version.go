package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// version/commit are overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rdcli version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("rdcli %s (%s) %s/%s\n", version, commit, runtime.GOOS, runtime.GOARCH)
	},
}
