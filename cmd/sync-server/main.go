package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/paketkapinda/genova/pkg/app"
	"github.com/paketkapinda/genova/pkg/app/syncer"
	"github.com/paketkapinda/genova/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional, environment is always read)")
	once := flag.Bool("once", false, "Run a single reconciliation and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var opts []syncer.Option
	if *once {
		opts = append(opts, syncer.WithOnce())
	}

	var runner app.Runner = syncer.NewServer(cfg, opts...)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "sync-server: %v\n", err)
		os.Exit(1)
	}
}
