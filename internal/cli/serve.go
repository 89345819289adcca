package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"filethings/internal/actions"
	"filethings/internal/app"
	"filethings/internal/command"
	"filethings/internal/rpc"
)

var serveListen string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the UI over a loopback websocket until interrupted",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from settings)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closer, err := app.Open(app.Options{DataDir: dataDir, Debug: debugFlag, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer closer.Close()

	addr := serveListen
	if addr == "" {
		addr = svc.Settings.Listen
	}
	router := actions.New(svc, command.New(svc))
	return rpc.New(svc, router).ListenAndServe(ctx, addr)
}
