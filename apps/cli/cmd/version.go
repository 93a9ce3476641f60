package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitdesk/packages/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		// The config file is not read so a broken config cannot hide the version.
		output.NewConsoleFormatter(output.WithWriter(w), output.WithNoColor(noColorFlag)).FormatHeader(version)
		fmt.Fprintf(w, "  built    %s\n", buildTime)
		fmt.Fprintf(w, "  runtime  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
