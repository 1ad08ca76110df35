package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brightpath-ai/mathtutor/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tutor over HTTP",
	Long: `Starts the HTTP API. POST /chat answers questions, GET /healthz
reports service health. Requests are rate limited per client IP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server := httpapi.NewServer(tutor, vectorIndex, httpapi.Options{
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, addr)
}
