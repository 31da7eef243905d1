package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/commercekit-labs/merchantsync/internal/cli"
	"github.com/commercekit-labs/merchantsync/internal/config"
	"github.com/commercekit-labs/merchantsync/internal/storage/sqlite"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersion(version)

	// Config path may be overridden for tests and multi-shop setups
	cfg, err := config.Load(os.Getenv("MERCHANTSYNC_CONFIG"))
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	tokenStore, err := sqlite.NewStore(os.Getenv("MERCHANTSYNC_DB"))
	if err != nil {
		log.Printf("failed to open token store: %v", err)
		return 1
	}
	defer tokenStore.Close()

	cli.SetServices(&cli.Services{
		Config: cfg,
		Store:  tokenStore,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
