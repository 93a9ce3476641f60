package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/workspace"
)

var requestsCmd = &cobra.Command{
	Use:   "requests <file>",
	Short: "List the requests defined in a file",
	Args:  cobra.ExactArgs(1),
	RunE:  requestsCommand,
}

func requestsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	local, err := openLocal(cmd.Context(), cfg, filepath.Dir(path), nil, warnFunc(cmd, cfg))
	if err != nil {
		return err
	}
	defs, err := local.ParseFile(cmd.Context(), path)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	printRequests(cmd.OutOrStdout(), defs)
	return nil
}

func printRequests(w io.Writer, defs []backend.RequestDefinition) {
	if len(defs) == 0 {
		fmt.Fprintln(w, workspace.NoRequestsPlaceholder)
		return
	}
	for _, d := range defs {
		line := fmt.Sprintf("%3d  %-7s %s", d.Index+1, d.Method, d.URL)
		if d.Name != "" {
			line += "  (" + d.Name + ")"
		}
		fmt.Fprintln(w, line)
	}
}
