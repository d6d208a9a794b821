package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skill-registry/internal/app"
	"skill-registry/internal/config"
	"skill-registry/internal/usecase"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "overall deadline for the run")
	workers := flag.Int("workers", 0, "worker count (overrides RECONCILE_WORKERS)")
	rps := flag.Float64("rps", -1, "store operations per second, 0 for unlimited (overrides RECONCILE_RPS)")
	flushGithub := flag.Bool("flush-github-cache", false, "also drop cached github repository listings")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *workers > 0 {
		cfg.Reconcile.Workers = *workers
	}
	if *rps >= 0 {
		cfg.Reconcile.RPS = *rps
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	c, err := app.NewContainer(ctx, cfg, log.Default())
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	if *flushGithub {
		n, err := c.Cache.DeleteByPrefix(ctx, usecase.GithubCachePrefix)
		if err != nil {
			log.Printf("github cache flush failed: %v", err)
		} else {
			log.Printf("github cache flushed keys=%d", n)
		}
	}

	report, runErr := c.NewReconciler().Run(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if runErr != nil {
		log.Printf("reconcile finished with errors: %v", runErr)
		_ = c.Close()
		os.Exit(1)
	}
}
