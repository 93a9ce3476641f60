package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hitdesk",
	Short: "A workspace for .http request files",
	Long: `hitdesk is a workspace for .http request files. Point it at a
directory, pick a file, edit it, and run one or all of its requests
against the environments defined in http-client.env.json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		code := ExitUsageError
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		}
		if exitErr == nil || exitErr.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", getEnvString("HITDESK_CONFIG", ""), "Path to config file (env: HITDESK_CONFIG)")
	flags.StringVarP(&rootFlag, "root", "r", getEnvString("HITDESK_ROOT", ""), "Workspace root directory (env: HITDESK_ROOT)")
	flags.StringVarP(&envFlag, "env", "e", getEnvString("HITDESK_ENV", ""), "Environment to use (env: HITDESK_ENV)")
	flags.StringVar(&sessionDBFlag, "session-db", getEnvString("HITDESK_SESSION_DB", ""), "Session database path (env: HITDESK_SESSION_DB)")
	flags.BoolVar(&noSessionFlag, "no-session", getEnvBool("HITDESK_NO_SESSION", false), "Do not read or write the session database (env: HITDESK_NO_SESSION)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("HITDESK_NO_COLOR", false), "Disable colored output (env: HITDESK_NO_COLOR)")

	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
