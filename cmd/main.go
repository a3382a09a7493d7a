package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "studyflow",
		Usage:    "Local-first study roadmaps, notes and planner",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   runner.Load,
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	if closeErr := runner.Close(); closeErr != nil {
		logger.Warn("failed to close local storage", "error", closeErr)
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
