package main

import (
	"context"

	"github.com/ParisNeo/pipmaster/internal/logger"
	"github.com/ParisNeo/pipmaster/pkg/manager"
	"github.com/ParisNeo/pipmaster/pkg/pyenv"
)

// newLogger builds the CLI logger. Verbose runs get debug-level entries,
// everything else stays at info.
func newLogger(root *rootFlags) (*logger.Logger, error) {
	level := "info"
	if root.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: true})
}

// newManager resolves the target environment selected by the persistent
// flags and returns a manager bound to it.
func newManager(ctx context.Context, root *rootFlags, log *logger.Logger) (*manager.Manager, error) {
	opts := pyenv.Options{
		Python:   root.python,
		VenvPath: root.venv,
	}
	return manager.New(ctx, opts, log.Zerolog())
}
