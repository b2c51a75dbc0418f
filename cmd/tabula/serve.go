package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/PabloGalante/tabula/internal/adapters/http"
	"github.com/PabloGalante/tabula/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			log := observability.Setup(os.Stdout, cfg.LogLevel, "json")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           httpadapter.NewServer(svc, cfg.MaxUploadBytes()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("tabula API listening", "addr", srv.Addr, "provider", cfg.LLMProvider, "storage", cfg.StorageBackend)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides TABULA_PORT)")
	return cmd
}
