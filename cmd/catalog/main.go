package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/di"
)

func main() {
	a, err := di.InitializeCatalog()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		a.Logger.Error("catalog exited with error", "error", err)
		os.Exit(1)
	}
}
