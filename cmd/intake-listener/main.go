package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clrecon/internal/config"
	"clrecon/internal/intake"
	"clrecon/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run a single intake cycle and exit")
	interval := flag.Int("interval", 0, "polling interval in seconds (overrides INTAKE_INTERVAL_SEC)")
	flag.Parse()

	cfg, err := config.Load()
	must(err)
	if *interval > 0 {
		cfg.IntakeIntervalSec = *interval
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	listener := intake.NewListener(db, cfg)
	if *once {
		must(listener.RunOnce())
		return
	}

	fmt.Printf("intake listener: provider=%s label=%s every %ds\n",
		cfg.IntakeProvider, cfg.IntakeLabel, cfg.IntakeIntervalSec)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(listener.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
