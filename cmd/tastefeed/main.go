package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"

	"github.com/kailas-cloud/tastefeed/internal/version"
)

func main() {
	// A missing .env is fine; real deployments use the process environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, NewRootCmd(), fang.WithVersion(version.String())); err != nil {
		os.Exit(1)
	}
}
