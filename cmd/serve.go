package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/medigen/catalyst/internal/handlers"
	"github.com/medigen/catalyst/internal/images"
	"github.com/medigen/catalyst/internal/report"
	"github.com/medigen/catalyst/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		Long: `Starts the MediGen Catalyst web interface on the specified port.

The interface lets you upload PNG or JPEG images, analyze them, download
PDF reports and ask follow-up questions about an analysis.`,
		Example: `  # Start server on default port 8888
  medigen serve

  # Use a local Ollama model on a custom port
  medigen serve --provider ollama --model llava --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			exporter := report.NewExporter(cfg.ExportDir)
			machine, err := newMachine(cfg, exporter)
			if err != nil {
				return err
			}

			store := storage.New(cfg.MaxSessions, cfg.SessionTTL, func(sessionID string) {
				if err := exporter.RemoveSession(sessionID); err != nil {
					slog.Error("Unable to remove session reports", "session_id", sessionID, "err", err)
				}
			})

			handler := handlers.New(handlers.Options{
				Store:        store,
				Machine:      machine,
				Exporter:     exporter,
				Fetcher:      images.NewFetcher(),
				AssetsDir:    cfg.AssetsDir,
				ModelTimeout: cfg.ModelTimeout,
			})

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				slog.Info("MediGen Catalyst available", "addr", addr, "url", "http://localhost"+addr, "provider", cfg.Provider, "model", cfg.Model)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			// Wait for context cancellation (Ctrl+C) or server error
			g.Go(func() error {
				<-ctx.Done()
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
