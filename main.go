package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
)

// Build details set with -ldflags.
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

// @title        Bookshelf API
// @version      1.0
// @description  REST API to manage a catalog of books and their owners.
// @BasePath     /
func main() {
	configFile := flag.String("config", DefaultConfigFile, "path to the yaml configuration file")
	envFile := flag.String("env", DefaultConfigEnvFile, "path to the optional environment file")
	flag.Parse()

	app, err := NewApp(*configFile, *envFile)
	if err != nil {
		log.Fatal("application failed to initialize: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx); err != nil {
		log.Fatal("application exited. check logs for more details: ", err)
	}
}
