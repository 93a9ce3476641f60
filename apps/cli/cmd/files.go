package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitdesk/packages/workspace"
)

var filesCmd = &cobra.Command{
	Use:   "files [directory]",
	Short: "List .http files under a directory",
	Long: `List the .http files found recursively under a directory, sorted by path.

Examples:
  hitdesk files
  hitdesk files ./api`,
	Args: cobra.MaximumNArgs(1),
	RunE: filesCommand,
}

func filesCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := cfg.Root
	if len(args) == 1 {
		root = args[0]
	}
	if root == "" {
		root = "."
	}

	local, err := openLocal(cmd.Context(), cfg, root, nil, warnFunc(cmd, cfg))
	if err != nil {
		return err
	}
	files, err := local.ListFiles(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, workspace.NoFilesPlaceholder)
		return nil
	}
	base, _ := local.GetRootDirectory(cmd.Context())
	for _, f := range files {
		rel, err := filepath.Rel(base, f.Path)
		if err != nil {
			rel = f.Path
		}
		fmt.Fprintln(out, rel)
	}
	return nil
}
