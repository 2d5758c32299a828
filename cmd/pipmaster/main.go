package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pkgerrors "github.com/ParisNeo/pipmaster/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps input and configuration problems to 2 and operational
// failures to 1.
func exitCode(err error) int {
	var parseErr *pkgerrors.ParseError
	var valErr *pkgerrors.ValidationError
	var envErr *pkgerrors.EnvironmentError
	if errors.As(err, &parseErr) || errors.As(err, &valErr) || errors.As(err, &envErr) {
		return 2
	}
	return 1
}
