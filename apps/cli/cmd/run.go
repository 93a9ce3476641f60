package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/config"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/parser"
	"github.com/abdul-hamid-achik/hitdesk/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the requests of a .http file",
	Long: `Run every request of a .http file in order, or a single one.

Examples:
  hitdesk run api.http
  hitdesk run api.http --env staging
  hitdesk run api.http --request 2
  hitdesk run api.http --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

var (
	requestFlag int
	outputFlag  string
	timeoutFlag string
	rateFlag    float64
	proxyFlag   string
	insecure    bool
)

func init() {
	runCmd.Flags().IntVarP(&requestFlag, "request", "n", getEnvInt("HITDESK_REQUEST", 0), "Run only the request with this number, starting at 1 (env: HITDESK_REQUEST)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITDESK_OUTPUT", "console"), "Output format: console, json (env: HITDESK_OUTPUT)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITDESK_TIMEOUT", ""), "Request timeout, e.g. 10s (env: HITDESK_TIMEOUT)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", 0, "Maximum requests per second")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITDESK_PROXY", ""), "Proxy URL for requests (env: HITDESK_PROXY)")
	runCmd.Flags().BoolVarP(&insecure, "insecure", "k", getEnvBool("HITDESK_INSECURE", false), "Skip TLS certificate verification (env: HITDESK_INSECURE)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid --timeout: %w", err))
		}
		cfg.Timeout = int(d.Milliseconds())
	}
	if rateFlag > 0 {
		cfg.RateLimit = rateFlag
	}
	if proxyFlag != "" {
		cfg.Proxy = proxyFlag
	}
	if insecure {
		cfg.ValidateSSL = config.BoolPtr(false)
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	warn := warnFunc(cmd, cfg)
	store := openSession(cfg, warn)
	if store != nil {
		defer store.Close()
	}
	local, err := openLocal(ctx, cfg, filepath.Dir(path), store, warn)
	if err != nil {
		return err
	}

	var results []*backend.ExecutionResult
	if requestFlag > 0 {
		var result *backend.ExecutionResult
		result, err = local.RunRequest(ctx, path, requestFlag-1, cfg.DefaultEnvironment)
		if result != nil {
			results = []*backend.ExecutionResult{result}
		}
	} else {
		results, err = local.RunAll(ctx, path, cfg.DefaultEnvironment)
	}
	if err != nil {
		var parseErr *parser.ParseError
		switch {
		case errors.As(err, &parseErr):
			return withExitCode(ExitParseError, err)
		case errors.Is(err, backend.ErrIndexOutOfRange):
			return withExitCode(ExitUsageError, err)
		}
		return withExitCode(ExitConfigError, err)
	}

	switch strings.ToLower(outputFlag) {
	case "json":
		if err := output.NewJSONFormatter(output.WithJSONWriter(cmd.OutOrStdout())).FormatResults(results); err != nil {
			return err
		}
	case "console", "":
		newConsole(cmd.OutOrStdout(), cfg).FormatResults(results)
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q", outputFlag))
	}

	for _, r := range results {
		if r == nil || (!r.Success && !r.Skipped) {
			return withExitCode(ExitRequestFailure, nil)
		}
	}
	return nil
}
