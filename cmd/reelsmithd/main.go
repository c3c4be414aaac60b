// Command reelsmithd runs the content generation daemon.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/events"
	"reelsmith/internal/history"
	"reelsmith/internal/logging"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/registry"
	"reelsmith/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return
	}

	bus := events.NewBus(logger)
	graphs := registry.Default()
	bodies := pipeline.New(cfg, logger)
	engine := workflow.NewEngine(logger, bus, graphs, bodies, store)
	manager := workflow.NewManager(logger, engine, cfg.Workflow.HistoryLimit)

	d, err := daemon.New(cfg, logger, bus, graphs, manager, store)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	d.Stop()
}
