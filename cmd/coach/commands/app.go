package commands

import (
	"context"
	"fmt"

	"github.com/jpkmiller/coach/internal/app"
	"github.com/jpkmiller/coach/internal/config"
	"github.com/jpkmiller/coach/internal/logger"
	"go.uber.org/zap"
)

// buildApp loads config, builds the logger and assembles the application
// graph. Callers must Close the returned app.
func buildApp(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := logger.New(cfg.DebugMode, cfg.JSONLogs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		_ = logger.Sync(zapLogger)
		return nil, nil, err
	}
	return a, zapLogger, nil
}
