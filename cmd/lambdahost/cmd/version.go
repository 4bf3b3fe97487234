package cmd

import (
	"runtime"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/internal/frameworks"
	"github.com/runvoy/lambdahost/internal/output"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of the CLI",
	Run: func(_ *cobra.Command, _ []string) {
		output.KeyValue("CLI version", *constants.GetVersion())
		output.KeyValue("Go version", runtime.Version())
		output.KeyValue("Frameworks", frameworks.NameChi+", "+frameworks.NameGin+", "+frameworks.NameFiber)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
