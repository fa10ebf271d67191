package cmd

import (
	"github.com/spf13/cobra"

	"car-sales/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "listen address (overrides LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.EnsureSchema(ctx); err != nil {
		logger.Warn("[serve] Store not ready, queries will fall back to %s: %v", a.degraded.Name(), err)
	}

	addr := cfg.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}
	srv := server.New(a.queries, a.assistant, a.insights, a.store, logger)
	return srv.Run(ctx, addr)
}
