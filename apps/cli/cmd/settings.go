package cmd

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/config"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/runner"
	"github.com/abdul-hamid-achik/hitdesk/packages/output"
	"github.com/abdul-hamid-achik/hitdesk/packages/session"
)

var (
	configFlag    string
	rootFlag      string
	envFlag       string
	sessionDBFlag string
	noSessionFlag bool
	noColorFlag   bool
)

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	overrides := &config.Config{
		Root:               rootFlag,
		DefaultEnvironment: envFlag,
		SessionDB:          sessionDBFlag,
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}
	return cfg.Merge(overrides), nil
}

func newConsole(w io.Writer, cfg *config.Config) *output.ConsoleFormatter {
	return output.NewConsoleFormatter(
		output.WithWriter(w),
		output.WithNoColor(cfg.GetNoColor()),
	)
}

// warnFunc prints warnings on the command's error stream.
func warnFunc(cmd *cobra.Command, cfg *config.Config) func(format string, args ...any) {
	console := newConsole(cmd.ErrOrStderr(), cfg)
	return console.FormatWarning
}

// openSession opens the session database unless disabled. Failure to open
// it is a warning, not an error.
func openSession(cfg *config.Config, warn func(string, ...any)) *session.Store {
	if noSessionFlag {
		return nil
	}
	path := cfg.SessionDB
	if path == "" {
		var err error
		if path, err = session.DefaultPath(); err != nil {
			warn("session disabled: %v", err)
			return nil
		}
	}
	store, err := session.Open(path)
	if err != nil {
		warn("session disabled: %v", err)
		return nil
	}
	return store
}

// openLocal builds the filesystem backend rooted at root.
func openLocal(ctx context.Context, cfg *config.Config, root string, store *session.Store, warn func(string, ...any)) (*backend.Local, error) {
	rc := cfg.RunnerConfig()
	rc.WarnFunc = warn
	return backend.NewLocal(ctx, root,
		backend.WithRunner(runner.NewRunner(rc)),
		backend.WithStore(store),
		backend.WithWarnFunc(warn),
	)
}
