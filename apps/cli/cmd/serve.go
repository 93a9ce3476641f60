package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitdesk/packages/rpc"
)

// RPCPath is where serve mounts the websocket endpoint.
const RPCPath = "/rpc"

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the local backend over a websocket",
	Long: `Serve the local filesystem backend to remote shells.

Examples:
  hitdesk serve --root ./api
  hitdesk serve --listen 127.0.0.1:9000
  hitdesk shell --remote ws://127.0.0.1:9000/rpc`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

var listenFlag string

func init() {
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", getEnvString("HITDESK_LISTEN", ""), "Address to listen on (env: HITDESK_LISTEN)")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenFlag != "" {
		cfg.Listen = listenFlag
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	warn := warnFunc(cmd, cfg)
	store := openSession(cfg, warn)
	if store != nil {
		defer store.Close()
	}
	local, err := openLocal(ctx, cfg, cfg.Root, store, warn)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(RPCPath, rpc.NewServer(local, rpc.WithServerWarnFunc(warn)))

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("listening on %s: %w", cfg.Listen, err))
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	root, _ := local.GetRootDirectory(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on ws://%s%s (press Ctrl+C to stop)\n", root, listener.Addr(), RPCPath)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
