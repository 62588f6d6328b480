package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/brunocoutinho/nibo-reconcile-backend/internal/cli"
	"github.com/brunocoutinho/nibo-reconcile-backend/internal/infrastructure/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	flags := cli.ParseServeFlags()

	cfg := config.LoadOrEnvWithPath(*configFile)

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
