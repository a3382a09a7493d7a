package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/shared"
)

// SetupConfig writes the embedded example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", shared.ErrInvalidArgument, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set server.jwt_secret and credentials.github in %s\n", path)
	r.writePlain("2. Run 'studyflow setup database' and 'studyflow serve' to host the backend\n")
	r.writePlain("3. Run 'studyflow roadmap create \"My roadmap\"' to start offline\n")
	return nil
}

// SetupDatabase initializes the backend database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Database
	r.logger.Info("initializing database", "driver", cfg.Driver, "path", cfg.Path)

	db, err := shared.NewDatabase(cfg.Driver, cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if !cmd.Bool("status") {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(states, true)
	}

	rows := make([][]string, 0, len(states))
	for _, s := range states {
		applied := "pending"
		if s.Applied {
			applied = "applied"
		}
		rows = append(rows, []string{fmt.Sprintf("%03d", s.Version), s.Name, applied})
	}
	if err := r.writeTable([]string{"Version", "Name", "State"}, rows, []columnAlignment{alignRight}); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", cfg.Path)
	return nil
}
