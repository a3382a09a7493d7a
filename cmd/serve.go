package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/server"
	"github.com/desertthunder/studyflow/internal/services"
	"github.com/desertthunder/studyflow/internal/shared"
)

// Serve runs the backend API until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := *r.config
	if host := cmd.String("host"); host != "" {
		cfg.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Server.Port = int(port)
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if r.logger.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := shared.WithLogger(r.logger, "component", "api")
	api, err := server.NewAPI(server.APIOptions{
		DB:     db,
		Config: cfg.Server,
		GitHub: services.NewGitHubClient("", r.httpClient),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build API: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting backend", "addr", cfg.Server.Addr(), "public_url", cfg.Server.PublicURL)
	return api.Serve(ctx, cfg.Server.Addr())
}
