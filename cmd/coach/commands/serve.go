package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpkmiller/coach/internal/logger"
	"github.com/jpkmiller/coach/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCmd runs the HTTP surface until interrupted.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the coach HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, zapLogger, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					zapLogger.Warn("failed_to_close_app", zap.Error(err))
				}
				_ = logger.Sync(zapLogger)
			}()

			srv := &http.Server{
				Addr:              ":" + a.Config.ServerPort,
				Handler:           server.New(a, zapLogger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				zapLogger.Info("starting_server", zap.String("port", a.Config.ServerPort))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
			}

			zapLogger.Info("shutting_down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
