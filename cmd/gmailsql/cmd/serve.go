package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmailsql/gmailsql/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP query API",
	Long: `Run a local HTTP server exposing the query engine.

Endpoints (under /api/v1, authenticated with [server] api_key):
  POST /query    {"sql": "SELECT ..."}
  POST /native   {"query": "labels()"}
  GET  /profile

GET /health is unauthenticated.

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	h, client, err := newHandler(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	server := api.NewServer(cfg, h, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return cmd.Context().Err()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
